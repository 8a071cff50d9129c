package handlers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/boto/internal/feedback"
	"github.com/aretw0/boto/internal/handlers"
	"github.com/aretw0/boto/internal/messages"
	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/adapters/memory"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
	"github.com/aretw0/boto/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phone = "5511999990000"

type harness struct {
	repo    *memory.Repository
	mgr     *session.Manager
	cls     *memory.Classifier
	search  *memory.Searcher
	catalog *messages.Catalog
	set     *handlers.Set
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		now:     time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		cls:     memory.NewClassifier(),
		search:  memory.NewSearcher(),
		catalog: messages.Default(),
	}
	clock := func() time.Time { return h.now }
	h.repo = memory.NewRepository(memory.WithRepositoryClock(clock))
	h.mgr = session.NewManager(memory.NewStore(memory.WithClock(clock)))
	h.set = handlers.New(handlers.Deps{
		Repo:       h.repo,
		Classifier: h.cls,
		Searcher:   h.search,
		Messages:   h.catalog,
		URLs:       h.mgr,
		Marks:      h.mgr,
		Feedback:   feedback.New(h.repo, h.mgr, feedback.WithClock(clock)),
		Now:        clock,
	})
	return h
}

func (h *harness) machine(state domain.State) *runtime.Machine {
	return runtime.NewMachine(phone, state, runtime.NewConditions(h.repo, h.repo))
}

func (h *harness) send(t *testing.T, m *runtime.Machine, text string, urls ...string) domain.Reply {
	t.Helper()
	reply, err := h.set.Handle(context.Background(), m, handlers.Input{Phone: phone, Text: text, URLs: urls})
	require.NoError(t, err)
	return reply
}

func (h *harness) msg(key string, kv ...string) string {
	vars := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		vars[kv[i]] = kv[i+1]
	}
	return h.catalog.Get(key, vars)
}

func (h *harness) registered(t *testing.T) *domain.User {
	t.Helper()
	u, err := h.repo.CreateUser(context.Background(), phone)
	require.NoError(t, err)
	return u
}

func TestParseConfirmation(t *testing.T) {
	for _, in := range []string{"sim", "S", " y ", "YES"} {
		yes, ok := handlers.ParseConfirmation(in)
		assert.True(t, ok, in)
		assert.True(t, yes, in)
	}
	for _, in := range []string{"não", "NAO", "n", "no"} {
		yes, ok := handlers.ParseConfirmation(in)
		assert.True(t, ok, in)
		assert.False(t, yes, in)
	}
	for _, in := range []string{"claro", "sim!", "talvez", "1", ""} {
		_, ok := handlers.ParseConfirmation(in)
		assert.False(t, ok, in)
	}
}

func TestStart_NewUserThenSubscribe(t *testing.T) {
	h := newHarness(t)
	m := h.machine(domain.StateStart)

	reply := h.send(t, m, "oi")
	assert.Contains(t, reply.Body, h.msg("welcome.new_user"))
	assert.Contains(t, reply.Body, h.msg("menu.main"))
	assert.Equal(t, domain.StateMenu, m.State())
	assert.Equal(t, 1, h.repo.UserCount())

	reply = h.send(t, m, "1")
	assert.Equal(t, h.msg("location.request"), reply.Body)
	assert.Equal(t, domain.StateGetLocation, m.State())
}

func TestStart_ExistingUserSeesMenu(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	m := h.machine(domain.StateStart)

	reply := h.send(t, m, "olá")
	assert.Equal(t, h.msg("menu.main"), reply.Body)
	assert.Equal(t, domain.StateMenu, m.State())
	assert.Equal(t, 1, h.repo.UserCount())
}

func TestMenu_SubscribeWithSavedLocation(t *testing.T) {
	h := newHarness(t)
	u := h.registered(t)
	ctx := context.Background()
	_, err := h.repo.AddLocation(ctx, domain.Location{UserID: u.ID, Name: "Belém, PA"})
	require.NoError(t, err)
	require.NoError(t, h.repo.SaveSchedule(ctx, u.ID, domain.ScheduleWeekly))

	m := h.machine(domain.StateMenu)
	reply := h.send(t, m, "1")
	assert.Equal(t, h.msg("subscription.modify"), reply.Body)
	assert.Equal(t, domain.StateModifySubscription, m.State())

	reply = h.send(t, m, "2")
	assert.Equal(t, h.msg("subject.request"), reply.Body)
	assert.Equal(t, domain.StateGetSubject, m.State())
}

func TestMenu_Options(t *testing.T) {
	tests := []struct {
		text string
		want domain.State
		key  string
	}{
		{"2", domain.StateGetTermInfo, "menu.term_info"},
		{"resumo", domain.StateGetArticleSummary, "menu.article_summary"},
		{"4", domain.StateGetNewsSuggestion, "menu.news_suggestion"},
		{"42", domain.StateMenu, "menu.invalid_option"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h := newHarness(t)
			h.registered(t)
			m := h.machine(domain.StateMenu)
			reply := h.send(t, m, tt.text)
			assert.Equal(t, h.msg(tt.key), reply.Body)
			assert.Equal(t, tt.want, m.State())
		})
	}

	t.Run("unsubscribe prompt is interactive", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)
		m := h.machine(domain.StateMenu)
		reply := h.send(t, m, "5")
		assert.Equal(t, h.msg("unsubscribe.confirm"), reply.Body)
		assert.True(t, reply.Interactive())
		assert.Equal(t, domain.StateUnsubscribe, m.State())
	})

	t.Run("about then back", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)
		m := h.machine(domain.StateMenu)
		reply := h.send(t, m, "sobre")
		assert.Contains(t, reply.Body, h.msg("about.info"))
		assert.Equal(t, domain.StateAbout, m.State())

		reply = h.send(t, m, "ok")
		assert.Equal(t, h.msg("menu.main"), reply.Body)
		assert.Equal(t, domain.StateMenu, m.State())
	})
}

func TestEscape_FromEveryState(t *testing.T) {
	for _, s := range domain.States {
		t.Run(string(s), func(t *testing.T) {
			h := newHarness(t)
			h.registered(t)
			m := h.machine(s)

			reply := h.send(t, m, "  MENU ")
			assert.Equal(t, h.msg("menu.main"), reply.Body)
			assert.Equal(t, domain.StateMenu, m.State())
		})
	}
}

func TestLocation_SingleSaved(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	h.cls.Locations["manaus"] = []ports.LocationVerdict{{Valid: true, Name: "Manaus, AM", Region: "municipality"}}
	m := h.machine(domain.StateGetLocation)

	reply := h.send(t, m, "Manaus")
	assert.Equal(t, h.msg("location.saved", "location", "Manaus, AM"), reply.Body)
	assert.Equal(t, domain.StateGetLocation, m.State())

	locs := h.repo.Locations(phone)
	require.Len(t, locs, 1)
	assert.Equal(t, "Manaus, AM", locs[0].Name)
	assert.False(t, locs[0].Confirmed)

	reply = h.send(t, m, "Manaus")
	assert.Equal(t, h.msg("location.already_exists", "location", "Manaus, AM"), reply.Body)
	assert.Len(t, h.repo.Locations(phone), 1)
}

func TestLocation_MultipleAndInvalid(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	h.cls.Locations["manaus, xyz, belém"] = []ports.LocationVerdict{
		{Valid: true, Name: "Manaus, AM"},
		{Valid: false, Name: "xyz"},
		{Valid: true, Name: "Belém, PA"},
	}
	h.cls.Locations["xyz"] = []ports.LocationVerdict{{Valid: false, Name: "xyz"}}
	m := h.machine(domain.StateGetLocation)

	reply := h.send(t, m, "Manaus, xyz, Belém")
	assert.Contains(t, reply.Body, h.msg("location.saved_multiple", "locations", "Manaus, AM, Belém, PA"))
	assert.Contains(t, reply.Body, h.msg("location.partial_invalid", "invalid", "xyz"))
	assert.Len(t, h.repo.Locations(phone), 2)

	reply = h.send(t, m, "xyz")
	assert.Equal(t, h.msg("location.invalid", "message", "xyz"), reply.Body)
	assert.Equal(t, domain.StateGetLocation, m.State())
}

func TestLocation_AllLocations(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	h.cls.Locations["todo o brasil"] = []ports.LocationVerdict{{Valid: true, All: true, Name: domain.AllLocationsMarker}}
	m := h.machine(domain.StateGetLocation)

	reply := h.send(t, m, "todo o Brasil")
	assert.Contains(t, reply.Body, h.msg("subject.request"))
	assert.Equal(t, domain.StateGetSubject, m.State())

	locs := h.repo.Locations(phone)
	require.Len(t, locs, 1)
	assert.Equal(t, domain.AllLocationsName, locs[0].Name)
	assert.Nil(t, locs[0].Latitude)
	assert.Nil(t, locs[0].Longitude)
}

func TestLocation_Confirmation(t *testing.T) {
	h := newHarness(t)
	u := h.registered(t)
	m := h.machine(domain.StateGetLocation)

	reply := h.send(t, m, "não")
	assert.Equal(t, h.msg("location.need_one"), reply.Body)
	assert.Equal(t, domain.StateGetLocation, m.State())

	_, err := h.repo.AddLocation(context.Background(), domain.Location{UserID: u.ID, Name: "Manaus, AM"})
	require.NoError(t, err)

	reply = h.send(t, m, "sim")
	assert.Equal(t, h.msg("location.add_more"), reply.Body)
	assert.Equal(t, domain.StateGetLocation, m.State())

	reply = h.send(t, m, "n")
	assert.Equal(t, h.msg("subject.request"), reply.Body)
	assert.Equal(t, domain.StateGetSubject, m.State())
	assert.Zero(t, h.cls.Calls())
}

func TestLocation_PurgesStaleRows(t *testing.T) {
	h := newHarness(t)
	u := h.registered(t)
	ctx := context.Background()
	_, err := h.repo.AddLocation(ctx, domain.Location{UserID: u.ID, Name: "Old", CreatedAt: h.now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	_, err = h.repo.AddLocation(ctx, domain.Location{UserID: u.ID, Name: "Recent", CreatedAt: h.now.Add(-10 * time.Minute)})
	require.NoError(t, err)

	m := h.machine(domain.StateGetLocation)
	h.send(t, m, "sim")

	locs := h.repo.Locations(phone)
	require.Len(t, locs, 1)
	assert.Equal(t, "Recent", locs[0].Name)
}

func TestLocation_OracleFailureRestarts(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	h.cls.Err = errors.New("timeout")
	m := h.machine(domain.StateGetLocation)

	reply := h.send(t, m, "Manaus")
	assert.Equal(t, h.msg("error.generic"), reply.Body)
	assert.Equal(t, domain.StateStart, m.State())
	assert.Empty(t, h.repo.Locations(phone))
}

func TestSubject_SavedAndAll(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	h.cls.Subjects["fogo"] = ports.SubjectVerdict{Valid: true, Subject: "Queimadas"}
	h.cls.Subjects["tudo sobre meio ambiente"] = ports.SubjectVerdict{Valid: true, Subject: "Todos temas"}
	h.cls.Subjects["futebol"] = ports.SubjectVerdict{Valid: false, Subject: "futebol", Explanation: "not environmental"}
	m := h.machine(domain.StateGetSubject)

	reply := h.send(t, m, "fogo")
	assert.Equal(t, h.msg("subject.saved", "subject", "Queimadas"), reply.Body)
	assert.Equal(t, domain.StateGetSubject, m.State())

	reply = h.send(t, m, "futebol")
	assert.Equal(t, h.msg("subject.invalid", "message", "futebol"), reply.Body)

	reply = h.send(t, m, "tudo sobre meio ambiente")
	assert.Contains(t, reply.Body, h.msg("schedule.request"))
	assert.Equal(t, domain.StateGetSchedule, m.State())

	subjects := h.repo.Subjects(phone)
	require.Len(t, subjects, 2)
	assert.Equal(t, domain.AllSubjectsName, subjects[1].Name)
}

func TestSchedule_OnlyCanonicalValuesPersist(t *testing.T) {
	h := newHarness(t)
	u := h.registered(t)
	_, err := h.repo.AddLocation(context.Background(), domain.Location{UserID: u.ID, Name: "Manaus, AM"})
	require.NoError(t, err)

	h.cls.Schedules["às vezes"] = ports.ScheduleVerdict{Valid: true, Value: "sometimes"}
	h.cls.Schedules["toda hora"] = ports.ScheduleVerdict{Valid: true, Value: "Daily"}
	h.cls.Schedules["uma vez por semana"] = ports.ScheduleVerdict{Valid: true, Value: "weekly"}
	m := h.machine(domain.StateGetSchedule)

	for _, text := range []string{"às vezes", "toda hora", "qualquer coisa"} {
		reply := h.send(t, m, text)
		assert.Equal(t, h.msg("schedule.invalid_option"), reply.Body, text)
		assert.Equal(t, domain.StateGetSchedule, m.State())
	}
	stored, err := h.repo.GetUser(context.Background(), phone)
	require.NoError(t, err)
	assert.Empty(t, stored.Schedule)
	assert.False(t, stored.IsActive)

	reply := h.send(t, m, "uma vez por semana")
	assert.Equal(t, h.msg("schedule.confirmation", "schedule", h.msg("schedule.labels.weekly")), reply.Body)
	assert.Equal(t, domain.StateStart, m.State())

	stored, err = h.repo.GetUser(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleWeekly, stored.Schedule)
	assert.True(t, stored.IsActive)
	assert.True(t, h.repo.Locations(phone)[0].Confirmed)
}

func TestTermInfo_NotFound(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	h.search.Terms["desmatamento"] = ports.TermResult{Success: true, Count: 0}
	m := h.machine(domain.StateGetTermInfo)

	reply := h.send(t, m, "desmatamento")
	assert.Equal(t, h.msg("term_info.not_found", "query", "desmatamento"), reply.Body)
	assert.Equal(t, domain.StateStart, m.State())
	assert.Empty(t, h.repo.Interactions())
}

func TestTermInfo_SearchErrorEndsFlow(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	h.search.Err = errors.New("503")
	m := h.machine(domain.StateGetTermInfo)

	h.send(t, m, "bioma")
	assert.Equal(t, domain.StateStart, m.State())
	assert.Empty(t, h.repo.Interactions())
}

func TestTermInfo_FeedbackCorrelation(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	ctx := context.Background()
	h.search.Terms["bioma"] = ports.TermResult{Success: true, Count: 3, Summary: "Bioma é um conjunto de ecossistemas."}

	// An unrelated earlier interaction must stay untouched.
	earlier, err := h.repo.CreateInteraction(ctx, domain.Interaction{PhoneNumber: phone, Category: domain.CategoryTerm, Query: "cop"})
	require.NoError(t, err)

	m := h.machine(domain.StateGetTermInfo)
	reply := h.send(t, m, "bioma")
	assert.True(t, reply.Interactive())
	assert.Contains(t, reply.Body, "Bioma é um conjunto de ecossistemas.")
	assert.Equal(t, domain.StateFeedback, m.State())

	ref, err := h.mgr.Interaction(ctx, phone)
	require.NoError(t, err)

	reply = h.send(t, m, "talvez")
	assert.Equal(t, h.msg("feedback.invalid_option"), reply.Body)
	assert.Equal(t, domain.StateFeedback, m.State())

	reply = h.send(t, m, "sim")
	assert.Equal(t, h.msg("feedback.positive"), reply.Body)
	assert.Equal(t, domain.StateStart, m.State())

	for _, in := range h.repo.Interactions() {
		switch in.ID {
		case ref:
			require.NotNil(t, in.Feedback)
			assert.True(t, *in.Feedback)
			assert.Equal(t, "bioma", in.Query)
			require.NotNil(t, in.UserID)
		case earlier:
			assert.Nil(t, in.Feedback)
		}
	}
}

func TestFeedback_MissingReferenceStillEnds(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	m := h.machine(domain.StateFeedback)

	reply := h.send(t, m, "2")
	assert.Equal(t, h.msg("feedback.negative"), reply.Body)
	assert.Equal(t, domain.StateStart, m.State())
}

func TestArticleSummary_Found(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	h.search.Articles["queimadas"] = ports.ArticleResult{Success: true, Count: 1, Results: []ports.Article{
		{Title: "Fogo no Pantanal", URL: "https://example.org/fogo", SummaryContent: "Focos batem recorde."},
	}}
	m := h.machine(domain.StateGetArticleSummary)

	reply := h.send(t, m, "queimadas")
	assert.Contains(t, reply.Body, "Fogo no Pantanal")
	assert.Contains(t, reply.Body, "Focos batem recorde.")
	assert.Equal(t, domain.StateFeedback, m.State())

	ins := h.repo.Interactions()
	require.Len(t, ins, 1)
	assert.Equal(t, domain.CategoryArticle, ins[0].Category)
}

func TestNewsSuggestion(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	m := h.machine(domain.StateGetNewsSuggestion)

	reply := h.send(t, m, "Garimpo no rio Tapajós")
	assert.Equal(t, h.msg("news_suggestion.thanks"), reply.Body)
	assert.Equal(t, domain.StateStart, m.State())

	ins := h.repo.Interactions()
	require.Len(t, ins, 1)
	assert.Equal(t, domain.CategoryNewsSuggestion, ins[0].Category)
	assert.Equal(t, "Garimpo no rio Tapajós", ins[0].Query)

	_, err := h.mgr.Interaction(context.Background(), phone)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUnsubscribe(t *testing.T) {
	t.Run("confirm twice", func(t *testing.T) {
		h := newHarness(t)
		u := h.registered(t)
		ctx := context.Background()
		_, err := h.repo.AddLocation(ctx, domain.Location{UserID: u.ID, Name: "Manaus, AM"})
		require.NoError(t, err)

		m := h.machine(domain.StateUnsubscribe)
		reply := h.send(t, m, "1")
		assert.Equal(t, h.msg("unsubscribe.success"), reply.Body)
		assert.Equal(t, domain.StateStart, m.State())
		assert.True(t, m.Forgotten())
		assert.Zero(t, h.repo.UserCount())
		assert.Empty(t, h.repo.Locations(phone))

		m = h.machine(domain.StateUnsubscribe)
		reply = h.send(t, m, "sim")
		assert.Equal(t, h.msg("unsubscribe.already"), reply.Body)
		assert.Equal(t, domain.StateStart, m.State())
	})

	t.Run("repeated confirmation after the session was cleared", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)

		m := h.machine(domain.StateUnsubscribe)
		h.send(t, m, "1")
		require.Zero(t, h.repo.UserCount())

		for _, text := range []string{"1", "sim"} {
			m = h.machine(domain.StateStart)
			reply := h.send(t, m, text)
			assert.Equal(t, h.msg("unsubscribe.already"), reply.Body)
			assert.Equal(t, domain.StateStart, m.State())
			assert.Zero(t, h.repo.UserCount(), text)
		}

		m = h.machine(domain.StateStart)
		reply := h.send(t, m, "oi")
		assert.Contains(t, reply.Body, h.msg("welcome.new_user"))
		assert.Equal(t, 1, h.repo.UserCount())

		marked, err := h.mgr.Unsubscribed(context.Background(), phone)
		require.NoError(t, err)
		assert.False(t, marked)
	})

	t.Run("cancel", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)
		m := h.machine(domain.StateUnsubscribe)
		reply := h.send(t, m, "não")
		assert.Contains(t, reply.Body, h.msg("unsubscribe.cancelled"))
		assert.Equal(t, domain.StateMenu, m.State())
		assert.Equal(t, 1, h.repo.UserCount())
	})

	t.Run("unrecognized reply re-prompts", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)
		m := h.machine(domain.StateUnsubscribe)
		reply := h.send(t, m, "s")
		assert.True(t, reply.Interactive())
		assert.Equal(t, domain.StateUnsubscribe, m.State())
	})

	t.Run("failure keeps subscription", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)
		h.repo.SetFailure(errors.New("deadlock"))
		m := h.machine(domain.StateUnsubscribe)

		reply := h.send(t, m, "1")
		assert.Contains(t, reply.Body, h.msg("unsubscribe.failed"))
		assert.True(t, reply.Interactive())
		assert.Equal(t, domain.StateUnsubscribe, m.State())
		assert.False(t, m.Forgotten())

		h.repo.SetFailure(nil)
		assert.Equal(t, 1, h.repo.UserCount())
	})
}

func seedDigest(t *testing.T, h *harness, content, status string) {
	t.Helper()
	_, err := h.repo.RecordMessage(context.Background(), domain.Message{
		WhatsAppMessageID: "wamid.digest." + status,
		PhoneNumber:       phone,
		Direction:         domain.DirectionOutgoing,
		Kind:              domain.KindTemplate,
		Content:           content,
		Status:            status,
	})
	require.NoError(t, err)
}

func TestMonthlyNewsResponse(t *testing.T) {
	t.Run("resolves title and looks up article", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)
		seedDigest(t, h, "Boletim do mês\n1. Queimadas no Pantanal\n2. Seca no Amazonas", domain.StatusDelivered)
		h.search.Articles["seca no amazonas"] = ports.ArticleResult{Success: true, Count: 1, Results: []ports.Article{
			{Title: "Seca no Amazonas", SummaryContent: "Rios em nível histórico."},
		}}
		m := h.machine(domain.StateMonthlyNewsResponse)

		reply := h.send(t, m, "2")
		assert.Contains(t, reply.Body, "Rios em nível histórico.")
		assert.Equal(t, domain.StateFeedback, m.State())
		assert.Equal(t, "Seca no Amazonas", h.repo.Interactions()[0].Query)
	})

	t.Run("no digest", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)
		seedDigest(t, h, "Erro ao enviar boletim", domain.StatusSent)
		m := h.machine(domain.StateMonthlyNewsResponse)

		reply := h.send(t, m, "1")
		assert.Equal(t, h.msg("digest.no_digest"), reply.Body)
		assert.Equal(t, domain.StateStart, m.State())
	})

	t.Run("number outside digest", func(t *testing.T) {
		h := newHarness(t)
		h.registered(t)
		seedDigest(t, h, "1. Queimadas no Pantanal", domain.StatusRead)
		m := h.machine(domain.StateMonthlyNewsResponse)

		reply := h.send(t, m, "7")
		assert.Equal(t, h.msg("digest.not_found"), reply.Body)
		assert.Equal(t, domain.StateStart, m.State())
	})
}

func TestProcessURL(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	url := "https://example.org/materia"
	h.cls.Summaries[url] = "Matéria sobre garimpo ilegal."
	m := h.machine(domain.StateProcessURL)

	reply := h.send(t, m, "olha isso "+url, url)
	assert.Equal(t, h.msg("url.summary", "summary", "Matéria sobre garimpo ilegal."), reply.Body)
	assert.Equal(t, domain.StateStart, m.State())

	ins := h.repo.Interactions()
	require.Len(t, ins, 1)
	assert.Equal(t, url, ins[0].Query)
}

func TestSelectURL(t *testing.T) {
	h := newHarness(t)
	h.registered(t)
	urls := []string{"https://a.example/1", "https://b.example/2"}
	h.search.Articles[urls[1]] = ports.ArticleResult{Success: true, Count: 1, Results: []ports.Article{
		{Title: "B", SummaryContent: "Resumo B"},
	}}
	m := h.machine(domain.StateSelectURL)

	reply := h.send(t, m, urls[0]+" "+urls[1], urls...)
	assert.Contains(t, reply.Body, "1. https://a.example/1")
	assert.Contains(t, reply.Body, "2. https://b.example/2")
	assert.Equal(t, domain.StateSelectURL, m.State())

	reply = h.send(t, m, "9")
	assert.Equal(t, h.msg("url.invalid_option"), reply.Body)

	reply = h.send(t, m, "2")
	assert.Contains(t, reply.Body, "Resumo B")
	assert.Equal(t, domain.StateFeedback, m.State())

	_, err := h.mgr.URLs(context.Background(), phone)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUserMissingMidFlow(t *testing.T) {
	h := newHarness(t)
	m := h.machine(domain.StateGetSubject)

	reply := h.send(t, m, "queimadas")
	assert.Equal(t, h.msg("error.user_not_found"), reply.Body)
	assert.Equal(t, domain.StateStart, m.State())
}
