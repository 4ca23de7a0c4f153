package copywriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/openrouter"
)

type fakeCompleter struct {
	configured bool
	reply      string
	err        error
	last       openrouter.CompletionRequest
	calls      int
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func (f *fakeCompleter) Complete(ctx context.Context, req openrouter.CompletionRequest) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func TestParseCopy(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected *Copy
	}{
		{
			name:     "labelled lines",
			raw:      "SUBJECT: Quick follow-up\nBODY: Are you still looking for a photographer?",
			expected: &Copy{Subject: "Quick follow-up", Body: "Are you still looking for a photographer?"},
		},
		{
			name:     "quoted and lowercase labels",
			raw:      "subject: \"Re: your wedding\"\nbody: 'Thanks for reaching out!'",
			expected: &Copy{Subject: "Re: your wedding", Body: "Thanks for reaching out!"},
		},
		{
			name:     "first line fallback",
			raw:      "Still interested?\nHappy to help.\n\nLet me know a good time.",
			expected: &Copy{Subject: "Still interested?", Body: "Happy to help.\n\nLet me know a good time."},
		},
		{
			name:     "subject label kept in fallback",
			raw:      "SUBJECT: Checking in\nJust a note.",
			expected: &Copy{Subject: "Checking in", Body: "Just a note."},
		},
		{name: "single line", raw: "Hello there", expected: nil},
		{name: "empty", raw: "", expected: nil},
		{name: "body without subject", raw: "BODY: hi", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCopy(tt.raw, MaxBodyLen))
		})
	}
}

func TestParseCopy_Truncates(t *testing.T) {
	raw := "SUBJECT: " + strings.Repeat("s", 300) + "\nBODY: " + strings.Repeat("b", 2000)
	got := ParseCopy(raw, MaxAutoreplyBodyLen)
	require.NotNil(t, got)
	assert.Len(t, got.Subject, MaxSubjectLen)
	assert.Len(t, got.Body, MaxAutoreplyBodyLen)
}

func TestFollowupEmail_PromptSelection(t *testing.T) {
	tests := []struct {
		name     string
		req      FollowupRequest
		contains string
	}{
		{name: "weekly", req: FollowupRequest{LeadName: "Ann", Weekly: true}, contains: "weekly check-in"},
		{name: "inquiry first", req: FollowupRequest{LeadName: "Ann", InquiryBody: "Do you shoot weddings?"}, contains: "Do you shoot weddings?"},
		{name: "generic second", req: FollowupRequest{LeadName: "Ann", Number: 1, Source: "Email"}, contains: "This is the second follow-up (they haven't replied yet). They came in via Email."},
		{name: "manual source omitted", req: FollowupRequest{LeadName: "Ann", Number: 5, Source: "Manual"}, contains: "This is the third follow-up (they haven't replied yet).\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{configured: true, reply: "SUBJECT: Hi\nBODY: Hello"}
			got := New(llm, zap.NewNop()).FollowupEmail(context.Background(), tt.req)

			require.NotNil(t, got)
			assert.Equal(t, "Hi", got.Subject)
			assert.Contains(t, llm.last.Prompt, tt.contains)
			assert.Equal(t, 200, llm.last.MaxTokens)
			assert.Equal(t, 0.7, llm.last.Temperature)
		})
	}
}

func TestWriter_Unavailable(t *testing.T) {
	ctx := context.Background()

	w := New(&fakeCompleter{configured: false}, zap.NewNop())
	assert.Nil(t, w.FollowupEmail(ctx, FollowupRequest{LeadName: "Ann"}))
	assert.Nil(t, w.FollowupSMS(ctx, FollowupRequest{LeadName: "Ann"}))
	assert.Nil(t, w.Autoreply(ctx, AutoreplyRequest{LeadName: "Ann", InquiryBody: "hi"}))

	w = New(&fakeCompleter{configured: true, err: errors.New("timeout")}, zap.NewNop())
	assert.Nil(t, w.FollowupEmail(ctx, FollowupRequest{LeadName: "Ann"}))
	assert.Nil(t, w.FollowupSMS(ctx, FollowupRequest{LeadName: "Ann"}))
}

func TestFollowupSMS(t *testing.T) {
	llm := &fakeCompleter{configured: true, reply: "\"" + strings.Repeat("x", 400) + "\""}
	got := New(llm, zap.NewNop()).FollowupSMS(context.Background(), FollowupRequest{LeadName: "Ann", InquiryBody: "Need a DJ"})

	require.NotNil(t, got)
	assert.Empty(t, got.Subject)
	assert.Len(t, got.Body, MaxSMSLen)
	assert.Contains(t, llm.last.Prompt, "What they said: Need a DJ")
	assert.Equal(t, 80, llm.last.MaxTokens)

	llm.reply = "  "
	assert.Nil(t, New(llm, zap.NewNop()).FollowupSMS(context.Background(), FollowupRequest{LeadName: "Ann"}))
}

func TestAutoreply(t *testing.T) {
	t.Run("requires an inquiry", func(t *testing.T) {
		llm := &fakeCompleter{configured: true, reply: "SUBJECT: a\nBODY: b"}
		assert.Nil(t, New(llm, zap.NewNop()).Autoreply(context.Background(), AutoreplyRequest{LeadName: "Ann"}))
		assert.Equal(t, 0, llm.calls)
	})

	t.Run("includes pricing and saved info", func(t *testing.T) {
		llm := &fakeCompleter{configured: true, reply: "SUBJECT: Re: rates\nBODY: Our packages start at $500."}
		got := New(llm, zap.NewNop()).Autoreply(context.Background(), AutoreplyRequest{
			LeadName:       "Ann",
			SenderName:     "Bright Studio",
			InquirySubject: "Rates?",
			InquiryBody:    "How much for a wedding?",
			Pricing:        "Weddings from $500",
			SavedInfo:      "Closed Mondays",
		})

		require.NotNil(t, got)
		assert.Equal(t, "Re: rates", got.Subject)
		assert.Contains(t, llm.last.Prompt, "Weddings from $500")
		assert.Contains(t, llm.last.Prompt, "Closed Mondays")
		assert.Equal(t, 120, llm.last.MaxTokens)
		assert.Equal(t, 0.5, llm.last.Temperature)
	})
}
