package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/boto/internal/handlers"
	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/adapters/memory"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"none", "Manaus, AM", nil},
		{"abbreviation", "S.Paulo e sim.", nil},
		{"scheme", "veja https://example.org/a?b=1.", []string{"https://example.org/a?b=1"}},
		{"bare www", "www.oeco.org.br", []string{"www.oeco.org.br"}},
		{"bare with path", "g1.globo.com/meio-ambiente/noticia", []string{"g1.globo.com/meio-ambiente/noticia"}},
		{"order and dedupe", "http://b.org/x www.a.org http://b.org/x", []string{"http://b.org/x", "www.a.org"}},
		{"bare domain", "leia em folha.uol.com.br hoje", []string{"folha.uol.com.br"}},
		{"parenthesized", "(https://example.org/a)", []string{"https://example.org/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURLs(tt.in))
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	got, err := SanitizeInput("  oi\x1b[31m\x00 ", 0)
	require.NoError(t, err)
	assert.Equal(t, "oi[31m", got)

	_, err = SanitizeInput(strings.Repeat("a", DefaultMaxInputSize+1), 0)
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = SanitizeInput("\xff", 0)
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	t.Setenv(EnvMaxInputSize, "3")
	_, err = SanitizeInput("abcd", 0)
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestURLFilter(t *testing.T) {
	m := runtime.NewMachine("1", domain.StateGetSchedule, runtime.StaticConditions{})
	f := URLFilter{}

	in := &handlers.Input{Text: "semanal"}
	_, ok, err := f.Apply(context.Background(), m, in)
	require.NoError(t, err)
	assert.False(t, ok)

	in = &handlers.Input{Text: "https://a.org/x"}
	trigger, ok, err := f.Apply(context.Background(), m, in)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.TriggerProcessURL, trigger)
	assert.Equal(t, []string{"https://a.org/x"}, in.URLs)

	in = &handlers.Input{Text: "https://a.org/x https://b.org/y"}
	trigger, _, _ = f.Apply(context.Background(), m, in)
	assert.Equal(t, domain.TriggerSelectFromMultipleURLs, trigger)
	assert.Len(t, in.URLs, 2)
}

func TestDigestFilter(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	f := DigestFilter{Messages: repo}
	start := runtime.NewMachine("1", domain.StateStart, runtime.StaticConditions{})

	_, ok, err := f.Apply(ctx, start, &handlers.Input{Text: "2"})
	require.NoError(t, err)
	assert.False(t, ok, "no digest sent yet")

	_, err = repo.RecordMessage(ctx, domain.Message{
		WhatsAppMessageID: "wamid.x", PhoneNumber: "1", Direction: domain.DirectionOutgoing,
		Kind: domain.KindTemplate, Content: "1. A", Status: domain.StatusDelivered,
	})
	require.NoError(t, err)

	trigger, ok, err := f.Apply(ctx, start, &handlers.Input{Text: " 2 "})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.TriggerStartMonthlyNewsResponse, trigger)

	_, ok, _ = f.Apply(ctx, start, &handlers.Input{Text: "oi"})
	assert.False(t, ok)

	menu := runtime.NewMachine("1", domain.StateMenu, runtime.StaticConditions{})
	_, ok, _ = f.Apply(ctx, menu, &handlers.Input{Text: "2"})
	assert.False(t, ok, "only from idle")
}

func TestDigestFilter_Window(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	start := runtime.NewMachine("1", domain.StateStart, runtime.StaticConditions{})

	_, err := repo.RecordMessage(ctx, domain.Message{
		WhatsAppMessageID: "wamid.old", PhoneNumber: "1", Direction: domain.DirectionOutgoing,
		Kind: domain.KindTemplate, Content: "1. A", Status: domain.StatusDelivered,
		StatusAt: now.Add(-10 * 24 * time.Hour),
	})
	require.NoError(t, err)

	f := DigestFilter{Messages: repo, Now: func() time.Time { return now }}
	_, ok, err := f.Apply(ctx, start, &handlers.Input{Text: "1"})
	require.NoError(t, err)
	assert.False(t, ok, "digest older than the default window")

	f.Window = 15 * 24 * time.Hour
	trigger, ok, err := f.Apply(ctx, start, &handlers.Input{Text: "1"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.TriggerStartMonthlyNewsResponse, trigger)

	f.Window = 0
	_, err = repo.RecordMessage(ctx, domain.Message{
		WhatsAppMessageID: "wamid.new", PhoneNumber: "1", Direction: domain.DirectionOutgoing,
		Kind: domain.KindTemplate, Content: "1. B", Status: domain.StatusDelivered,
		StatusAt: now.Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	_, ok, err = f.Apply(ctx, start, &handlers.Input{Text: "1"})
	require.NoError(t, err)
	assert.True(t, ok, "recent digest")
}
