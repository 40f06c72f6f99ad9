package tilbakekreving

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
)

var (
	fixedTime     = time.Date(2021, 11, 2, 9, 30, 0, 0, time.UTC)
	saksbehandler = hendelse.Actor{Ident: "Z990001", Roles: []string{"SAKSBEHANDLER"}}
	attestant     = hendelse.Actor{Ident: "Z990002", Roles: []string{"ATTESTANT"}}
	sakId         = uuid.MustParse("6f0e4c9c-5a39-4b5e-9c43-2b1f4a1d7c10")
	periodeFra    = time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC)
	periodeTil    = time.Date(2021, 10, 31, 0, 0, 0, 0, time.UTC)
)

// sequentialIds makes event ids deterministic.
func sequentialIds() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("h%03d", n)
	}
}

func kontekst(actor hendelse.Actor, ids func() string) Kontekst {
	return Kontekst{
		Tidspunkt:    fixedTime,
		Actor:        actor,
		Metadata:     hendelse.Metadata{CorrelationId: "corr-1"},
		NyHendelseId: ids,
	}
}

func testKnytning(hendelseId string, versjon uint64) KravgrunnlagKnytning {
	return KravgrunnlagKnytning{
		Referanse: kravgrunnlag.Referanse{HendelseId: hendelseId, Versjon: versjon, EksternKravgrunnlagId: "123456"},
		Kravgrunnlag: kravgrunnlag.Kravgrunnlag{
			EksternKravgrunnlagId: "123456",
			EksternVedtakId:       "436204",
			EksternKontrollfelt:   "2021-11-01-02.02.03.456789",
			EksternTidspunkt:      fixedTime,
			Status:                kravgrunnlag.StatusNytt,
			Saksbehandler:         "K231B433",
			Grunnlagsperioder: []kravgrunnlag.Grunnlagsperiode{{
				Fra:                  periodeFra,
				Til:                  periodeTil,
				BruttoFeilutbetaling: 9989,
				SkatteProsent:        "43.9983",
			}},
		},
	}
}

func testVurderinger() *Vurderinger {
	return &Vurderinger{Perioder: []PeriodeVurdering{{Fra: periodeFra, Til: periodeTil, Vurdering: SkalTilbakekreve}}}
}

func testBrev() *Vedtaksbrev {
	return &Vedtaksbrev{Brevvalg: SendBrev, Fritekst: "fritekst"}
}

// step applies the decided events and returns the resulting state with all events so far.
func step(t *testing.T, state Behandling, history []hendelse.Event, events []hendelse.Event, err error) (Behandling, []hendelse.Event) {
	t.Helper()
	require.NoError(t, err)
	for _, event := range events {
		state, err = Apply(state, event)
		require.NoError(t, err)
	}
	return state, append(history, events...)
}

// utfylt returns a filled-in behandling and its history.
func utfylt(t *testing.T, ids func() string) (Behandling, []hendelse.Event) {
	t.Helper()
	k := kontekst(saksbehandler, ids)
	knytning := testKnytning("kg1", 1)
	events, err := DecideOpprett(nil, NewBehandlingId(), sakId, &knytning, nil, k)
	state, history := step(t, nil, nil, events, err)
	events, err = DecideLagreUtkast(state, Utkast{Vurderinger: testVurderinger(), Vedtaksbrev: testBrev()}, k)
	state, history = step(t, state, history, events, err)
	require.Equal(t, TilstandUtfylt, state.Tilstand())
	return state, history
}

func Test_Behandling_ApprovalWorkflow(t *testing.T) {
	// Given
	ids := sequentialIds()
	state, history := utfylt(t, ids)

	// When
	events, err := DecideSendTilAttestering(state, kontekst(saksbehandler, ids))
	state, history = step(t, state, history, events, err)
	events, err = DecideIverksett(state, kontekst(attestant, ids))
	require.NoError(t, err)
	iverksatt := events[0].(*IverksattHendelse).MedKvittering(Kvittering{Referanse: "oppdrag-1", Mottatt: fixedTime})
	state, history = step(t, state, history, []hendelse.Event{iverksatt}, nil)

	// Then
	require.Equal(t, TilstandIverksatt, state.Tilstand())
	s := state.(Iverksatt)
	assert.Equal(t, "oppdrag-1", s.Kvittering.Referanse)
	assert.Equal(t, attestant.Ident, s.IverksattAv.Ident)
	assert.Equal(t, saksbehandler.Ident, s.ForrigeSteg.SendtTilAttesteringAv.Ident)
	assert.Equal(t, uint64(len(history)), s.Versjon)
	assert.Equal(t, history[len(history)-1].GetId(), s.SisteHendelseId)
	require.Len(t, s.Attesteringer, 1)
	assert.Nil(t, s.Attesteringer[0].Underkjenning)
	assert.False(t, state.Tilstand().ErAapen())
}

func Test_Behandling_FoldIsDeterministic(t *testing.T) {
	_, history := utfylt(t, sequentialIds())

	first, err := Fold(history)
	require.NoError(t, err)
	second, err := Fold(history)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	empty, err := Fold(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func Test_Behandling_DecidersAreDeterministic(t *testing.T) {
	state, _ := utfylt(t, sequentialIds())
	first, err := DecideSendTilAttestering(state, kontekst(saksbehandler, sequentialIds()))
	require.NoError(t, err)
	second, err := DecideSendTilAttestering(state, kontekst(saksbehandler, sequentialIds()))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func Test_Behandling_OpprettVariants(t *testing.T) {
	knytning := testKnytning("kg1", 1)
	tests := []struct {
		name     string
		knytning *KravgrunnlagKnytning
		utkast   *Utkast
		want     Tilstand
	}{
		{"uten referanse", nil, nil, TilstandOpprettetUtenReferanse},
		{"uten referanse med notat", nil, &Utkast{Notat: ptr("notat")}, TilstandOpprettetUtenReferanse},
		{"med referanse", &knytning, nil, TilstandOpprettetMedReferanse},
		{"med vurderinger", &knytning, &Utkast{Vurderinger: testVurderinger()}, TilstandPabegynt},
		{"med fullt utkast", &knytning, &Utkast{Vurderinger: testVurderinger(), Vedtaksbrev: testBrev()}, TilstandUtfylt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := DecideOpprett(nil, NewBehandlingId(), sakId, tt.knytning, tt.utkast, kontekst(saksbehandler, sequentialIds()))
			state, _ := step(t, nil, nil, events, err)
			assert.Equal(t, tt.want, state.Tilstand())
			assert.Equal(t, uint64(1), state.GetFelles().Versjon)
			if tt.knytning != nil {
				assert.Equal(t, tt.knytning.Referanse.HendelseId, events[0].GetPreviousId())
			}
		})
	}
}

func Test_Behandling_OpprettRejectsInvalidDraft(t *testing.T) {
	knytning := testKnytning("kg1", 1)
	k := kontekst(saksbehandler, sequentialIds())
	var invalid *InvalidTransitionError

	_, err := DecideOpprett(nil, NewBehandlingId(), sakId, nil, &Utkast{Vurderinger: testVurderinger()}, k)
	assert.True(t, errors.As(err, &invalid))

	_, err = DecideOpprett(nil, NewBehandlingId(), sakId, &knytning, &Utkast{Vedtaksbrev: testBrev()}, k)
	assert.True(t, errors.As(err, &invalid))

	wrongPeriod := &Vurderinger{Perioder: []PeriodeVurdering{{Fra: periodeTil, Til: periodeTil, Vurdering: SkalTilbakekreve}}}
	_, err = DecideOpprett(nil, NewBehandlingId(), sakId, &knytning, &Utkast{Vurderinger: wrongPeriod}, k)
	assert.True(t, errors.As(err, &invalid))

	state, _ := utfylt(t, sequentialIds())
	_, err = DecideOpprett(state, state.GetFelles().Id, sakId, nil, nil, k)
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, TilstandUtfylt, invalid.Tilstand)
}

func Test_Behandling_LagreUtkastStepByStep(t *testing.T) {
	ids := sequentialIds()
	k := kontekst(saksbehandler, ids)
	events, err := DecideOpprett(nil, NewBehandlingId(), sakId, nil, nil, k)
	state, history := step(t, nil, nil, events, err)

	// no reference yet
	_, err = DecideLagreUtkast(state, Utkast{Vurderinger: testVurderinger()}, k)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))

	events, err = DecideOppdaterKravgrunnlag(state, testKnytning("kg1", 1), k)
	state, history = step(t, state, history, events, err)
	assert.Equal(t, TilstandOpprettetMedReferanse, state.Tilstand())
	assert.Equal(t, TilstandOpprettetUtenReferanse, state.(OpprettetMedReferanse).ForrigeSteg.Tilstand())

	events, err = DecideLagreUtkast(state, Utkast{Vurderinger: testVurderinger(), Notat: ptr("første notat")}, k)
	require.Len(t, events, 2)
	state, history = step(t, state, history, events, err)
	assert.Equal(t, TilstandPabegynt, state.Tilstand())
	assert.Equal(t, "første notat", state.GetFelles().Notat)

	events, err = DecideLagreUtkast(state, Utkast{Vedtaksbrev: testBrev()}, k)
	state, history = step(t, state, history, events, err)
	assert.Equal(t, TilstandUtfylt, state.Tilstand())
	assert.Equal(t, TilstandPabegynt, state.(Utfylt).ForrigeSteg.Tilstand())

	// editing a filled-in behandling keeps the state kind and the previous step
	events, err = DecideLagreUtkast(state, Utkast{Notat: ptr("andre notat")}, k)
	state, history = step(t, state, history, events, err)
	assert.Equal(t, TilstandUtfylt, state.Tilstand())
	assert.Equal(t, TilstandPabegynt, state.(Utfylt).ForrigeSteg.Tilstand())
	assert.Equal(t, uint64(len(history)), state.GetFelles().Versjon)

	_, err = DecideLagreUtkast(state, Utkast{}, k)
	assert.True(t, errors.As(err, &invalid))
}

func Test_Behandling_OppdaterKravgrunnlagResetsVurderinger(t *testing.T) {
	ids := sequentialIds()
	state, history := utfylt(t, ids)
	k := kontekst(saksbehandler, ids)

	_, err := DecideOppdaterKravgrunnlag(state, testKnytning("kg1", 1), k)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))

	events, err := DecideOppdaterKravgrunnlag(state, testKnytning("kg2", 2), k)
	state, history = step(t, state, history, events, err)
	assert.Equal(t, TilstandPabegynt, state.Tilstand())
	assert.Nil(t, state.GetFelles().Vurderinger)
	assert.NotNil(t, state.GetFelles().Vedtaksbrev)
	ref, ok := state.GetFelles().KravgrunnlagReferanse()
	require.True(t, ok)
	assert.Equal(t, uint64(2), ref.Versjon)

	// the kept letter makes the behandling filled in again once it is reassessed
	events, err = DecideLagreUtkast(state, Utkast{Vurderinger: testVurderinger()}, k)
	state, _ = step(t, state, history, events, err)
	assert.Equal(t, TilstandUtfylt, state.Tilstand())
}

func Test_Behandling_Forhandsvarsel(t *testing.T) {
	ids := sequentialIds()
	state, history := utfylt(t, ids)
	k := kontekst(saksbehandler, ids)

	_, err := DecideForhandsvarsle(state, "", "", k)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))

	events, err := DecideForhandsvarsle(state, "dok-1", "varsel", k)
	state, _ = step(t, state, history, events, err)
	assert.Equal(t, TilstandUtfylt, state.Tilstand())
	require.Len(t, state.GetFelles().Forhandsvarsler, 1)
	assert.Equal(t, "dok-1", state.GetFelles().Forhandsvarsler[0].DokumentId)
	assert.Equal(t, fixedTime, state.GetFelles().Forhandsvarsler[0].Tidspunkt)
}

func Test_Behandling_SendTilAttesteringRequiresUtfylt(t *testing.T) {
	knytning := testKnytning("kg1", 1)
	k := kontekst(saksbehandler, sequentialIds())
	events, err := DecideOpprett(nil, NewBehandlingId(), sakId, &knytning, &Utkast{Vurderinger: testVurderinger()}, k)
	state, _ := step(t, nil, nil, events, err)

	_, err = DecideSendTilAttestering(state, k)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, TilstandPabegynt, invalid.Tilstand)

	_, err = DecideSendTilAttestering(nil, k)
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, TilstandIkkeOpprettet, invalid.Tilstand)
}

func Test_Behandling_ReviewerMustDifferFromSubmitter(t *testing.T) {
	ids := sequentialIds()
	state, history := utfylt(t, ids)
	events, err := DecideSendTilAttestering(state, kontekst(saksbehandler, ids))
	state, _ = step(t, state, history, events, err)

	var sameActor *SameActorViolationError
	_, err = DecideIverksett(state, kontekst(saksbehandler, ids))
	require.True(t, errors.As(err, &sameActor))
	assert.Equal(t, saksbehandler.Ident, sameActor.Actor)

	_, err = DecideUnderkjenn(state, BeregningenErFeil, "feil beløp", kontekst(saksbehandler, ids))
	assert.True(t, errors.As(err, &sameActor))
}

func Test_Behandling_UnderkjennAndResubmit(t *testing.T) {
	ids := sequentialIds()
	state, history := utfylt(t, ids)
	events, err := DecideSendTilAttestering(state, kontekst(saksbehandler, ids))
	state, history = step(t, state, history, events, err)

	var invalid *InvalidTransitionError
	_, err = DecideUnderkjenn(state, UnderkjentGrunn("UKJENT"), "x", kontekst(attestant, ids))
	require.True(t, errors.As(err, &invalid))
	_, err = DecideUnderkjenn(state, BeregningenErFeil, "", kontekst(attestant, ids))
	require.True(t, errors.As(err, &invalid))

	events, err = DecideUnderkjenn(state, BeregningenErFeil, "feil beløp", kontekst(attestant, ids))
	state, history = step(t, state, history, events, err)
	require.Equal(t, TilstandUtfylt, state.Tilstand())
	underkjenning := state.(Utfylt).Underkjenning
	require.NotNil(t, underkjenning)
	assert.Equal(t, BeregningenErFeil, underkjenning.Grunn)
	assert.Equal(t, attestant.Ident, underkjenning.Attestant.Ident)
	assert.Equal(t, TilstandTilAttestering, state.(Utfylt).ForrigeSteg.Tilstand())

	events, err = DecideSendTilAttestering(state, kontekst(saksbehandler, ids))
	state, history = step(t, state, history, events, err)
	events, err = DecideIverksett(state, kontekst(attestant, ids))
	require.NoError(t, err)
	kvittert := events[0].(*IverksattHendelse).MedKvittering(Kvittering{Referanse: "oppdrag-2", Mottatt: fixedTime})
	state, _ = step(t, state, history, []hendelse.Event{kvittert}, nil)

	require.Len(t, state.GetFelles().Attesteringer, 2)
	assert.NotNil(t, state.GetFelles().Attesteringer[0].Underkjenning)
	assert.Nil(t, state.GetFelles().Attesteringer[1].Underkjenning)
}

func Test_Behandling_Avbryt(t *testing.T) {
	ids := sequentialIds()
	state, history := utfylt(t, ids)
	k := kontekst(saksbehandler, ids)

	var invalid *InvalidTransitionError
	_, err := DecideAvbryt(state, "", k)
	require.True(t, errors.As(err, &invalid))

	events, err := DecideAvbryt(state, "feilregistrert", k)
	state, _ = step(t, state, history, events, err)
	require.Equal(t, TilstandAvbrutt, state.Tilstand())
	s := state.(Avbrutt)
	assert.Equal(t, "feilregistrert", s.Begrunnelse)
	assert.Equal(t, saksbehandler.Ident, s.AvbruttAv.Ident)
	assert.Equal(t, TilstandUtfylt, s.ForrigeSteg.Tilstand())

	for name, decide := range map[string]func() ([]hendelse.Event, error){
		"avbryt":  func() ([]hendelse.Event, error) { return DecideAvbryt(state, "igjen", k) },
		"utkast":  func() ([]hendelse.Event, error) { return DecideLagreUtkast(state, Utkast{Notat: ptr("x")}, k) },
		"varsel":  func() ([]hendelse.Event, error) { return DecideForhandsvarsle(state, "dok", "", k) },
		"attest":  func() ([]hendelse.Event, error) { return DecideSendTilAttestering(state, k) },
		"iverks":  func() ([]hendelse.Event, error) { return DecideIverksett(state, kontekst(attestant, ids)) },
		"oppdat":  func() ([]hendelse.Event, error) { return DecideOppdaterKravgrunnlag(state, testKnytning("kg9", 9), k) },
		"underkj": func() ([]hendelse.Event, error) { return DecideUnderkjenn(state, AndreForhold, "x", kontekst(attestant, ids)) },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decide()
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func Test_Apply_IverksattOnlyFromTilAttestering(t *testing.T) {
	ids := sequentialIds()
	state, _ := utfylt(t, ids)
	f := state.GetFelles()
	event := &IverksattHendelse{
		BehandlingHeader: kontekst(attestant, ids).next(IverksattTypeName, f),
		Kvittering:       &Kvittering{Referanse: "oppdrag-1", Mottatt: fixedTime},
	}

	_, err := Apply(state, event)

	var corrupted *CorruptedHistoryError
	require.True(t, errors.As(err, &corrupted))
	assert.Equal(t, event.Id, corrupted.EventId)
}

func Test_Apply_RejectsBrokenHistory(t *testing.T) {
	ids := sequentialIds()
	state, history := utfylt(t, ids)
	f := state.GetFelles()
	k := kontekst(saksbehandler, ids)

	gap := &NotatHendelse{BehandlingHeader: k.header(NotatTypeName, f.Id, f.SakId, f.Versjon+2, f.SisteHendelseId), Notat: "x"}
	broken := &NotatHendelse{BehandlingHeader: k.header(NotatTypeName, f.Id, f.SakId, f.Versjon+1, "annen"), Notat: "x"}
	otherSak := &NotatHendelse{BehandlingHeader: k.header(NotatTypeName, f.Id, uuid.New(), f.Versjon+1, f.SisteHendelseId), Notat: "x"}
	otherBehandling := &NotatHendelse{BehandlingHeader: k.header(NotatTypeName, NewBehandlingId(), f.SakId, f.Versjon+1, f.SisteHendelseId), Notat: "x"}

	for name, event := range map[string]hendelse.Event{
		"gap": gap, "broken chain": broken, "other sak": otherSak, "other behandling": otherBehandling,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Fold(append(append([]hendelse.Event{}, history...), event))
			var corrupted *CorruptedHistoryError
			assert.True(t, errors.As(err, &corrupted))
		})
	}

	t.Run("missing genesis", func(t *testing.T) {
		_, err := Fold(history[1:])
		var corrupted *CorruptedHistoryError
		assert.True(t, errors.As(err, &corrupted))
	})
}

func Test_Apply_RejectsApprovalBySubmitter(t *testing.T) {
	ids := sequentialIds()
	state, history := utfylt(t, ids)
	events, err := DecideSendTilAttestering(state, kontekst(saksbehandler, ids))
	state, _ = step(t, state, history, events, err)

	event := &IverksattHendelse{
		BehandlingHeader: kontekst(saksbehandler, ids).next(IverksattTypeName, state.GetFelles()),
		Kvittering:       &Kvittering{Referanse: "oppdrag-1"},
	}
	_, err = Apply(state, event)
	var corrupted *CorruptedHistoryError
	assert.True(t, errors.As(err, &corrupted))
}

func Test_Sammendrag(t *testing.T) {
	state, _ := utfylt(t, sequentialIds())
	s := NewBehandlingssammendrag(state)
	assert.Equal(t, sakId, s.SakId)
	assert.Equal(t, TilstandUtfylt, s.Tilstand)
	assert.Equal(t, periodeFra, s.Fra)
	assert.Equal(t, periodeTil, s.Til)
	assert.True(t, s.ErAapen())
}

func Test_Repository_RoundTripOnSqlite(t *testing.T) {
	// Given
	ctx := context.Background()
	store, err := hendelse.OpenEventStoreOnSqlite(hendelse.SqliteFile{Path: filepath.Join(t.TempDir(), "journal.db")}, Converter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	repository := NewRepository(store, WithLogger(zerolog.Nop()))

	ids := sequentialIds()
	want, history := utfylt(t, ids)
	events, err := DecideSendTilAttestering(want, kontekst(saksbehandler, ids))
	want, history = step(t, want, history, events, err)

	// When
	require.NoError(t, repository.Lagre(ctx, history, 0))
	got, err := repository.Hent(ctx, want.GetFelles().Id)

	// Then
	require.NoError(t, err)
	assert.Equal(t, want.Tilstand(), got.Tilstand())
	assert.Equal(t, want.GetFelles().Versjon, got.GetFelles().Versjon)
	assert.Equal(t, want.GetFelles().SisteHendelseId, got.GetFelles().SisteHendelseId)
	assert.Equal(t, *want.GetFelles().Vurderinger, *got.GetFelles().Vurderinger)
	assert.Equal(t, want.GetFelles().Knytning.Referanse, got.GetFelles().Knytning.Referanse)

	idList, err := repository.HentIder(ctx)
	require.NoError(t, err)
	assert.Equal(t, []BehandlingId{want.GetFelles().Id}, idList)

	unknown, err := repository.Hent(ctx, NewBehandlingId())
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func Test_Repository_ReportsCorruptedHistory(t *testing.T) {
	ctx := context.Background()
	store := hendelse.NewEventStoreOnMemory()
	repository := NewRepository(store, WithLogger(zerolog.Nop()))

	ids := sequentialIds()
	state, _ := utfylt(t, ids)
	id := state.GetFelles().Id
	// a history starting with an edit instead of a genesis event
	orphan := &NotatHendelse{
		BehandlingHeader: kontekst(saksbehandler, ids).header(NotatTypeName, id, sakId, 1, ""),
		Notat:            "x",
	}
	require.NoError(t, store.PersistEvents(ctx, []hendelse.Event{orphan}, 0))

	_, err := repository.Hent(ctx, id)
	var corrupted *CorruptedHistoryError
	require.True(t, errors.As(err, &corrupted))
	assert.Equal(t, orphan.Id, corrupted.EventId)
}

func Test_Converter_UnknownType(t *testing.T) {
	_, err := Converter("UKJENT", []byte(`{}`))
	var unknown *hendelse.UnknownEventTypeError
	assert.True(t, errors.As(err, &unknown))
}

func ptr[T any](v T) *T { return &v }

func Test_NewVedtak(t *testing.T) {
	ids := sequentialIds()
	state, history := utfylt(t, ids)
	events, err := DecideSendTilAttestering(state, kontekst(saksbehandler, ids))
	state, _ = step(t, state, history, events, err)

	vedtak := NewVedtak(state.(TilAttestering))

	assert.Equal(t, state.GetFelles().Id.GetValue(), vedtak.BehandlingId)
	assert.Equal(t, "123456", vedtak.EksternKravgrunnlagId)
	assert.Equal(t, saksbehandler.Ident, vedtak.Saksbehandler)
	assert.Equal(t, SendBrev, vedtak.Brevvalg)
	require.Len(t, vedtak.Perioder, 1)
	assert.Equal(t, SkalTilbakekreve, vedtak.Perioder[0].Vurdering)
	assert.Equal(t, int64(9989), vedtak.SumTilbakekreving())
}
