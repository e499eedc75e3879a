package bootstrap

import (
	"bytes"
	"strings"
	"testing"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
	"ceto/internal/platform/config"
)

func defaultPolicyConfig() config.Policy {
	return config.Policy{
		EndorseThreshold:        3,
		ThresholdMode:           "popularity",
		ThresholdPopularityStep: 10,
		ThresholdMax:            6,
		SuggestionTTL:           0,
		KarmaAuthorAccept:       10,
		KarmaEndorseAccept:      2,
		KarmaAuthorReject:       5,
		TrustContributorMin:     10,
		TrustTrustedMin:         50,
		TrustStewardMin:         200,
		TastingNoteMode:         "immutable",
	}
}

func TestModerationPolicyFromConfig(t *testing.T) {
	moderationPolicy, err := ModerationPolicy(defaultPolicyConfig())
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}
	if got := moderationPolicy.Threshold.Required(entities.Record{Version: 30}); got != 6 {
		t.Fatalf("expected capped popularity threshold 6, got %d", got)
	}
	if moderationPolicy.TastingNotes != policy.TastingNotesImmutable {
		t.Fatalf("expected immutable tasting notes, got %s", moderationPolicy.TastingNotes)
	}
	if moderationPolicy.Karma.AuthorReject != 5 {
		t.Fatalf("unexpected karma rules: %+v", moderationPolicy.Karma)
	}

	bad := defaultPolicyConfig()
	bad.TrustTrustedMin = 5
	if _, err := ModerationPolicy(bad); err == nil {
		t.Fatalf("expected invalid trust tiers to fail")
	}
	bad = defaultPolicyConfig()
	bad.ThresholdMode = "weighted"
	if _, err := ModerationPolicy(bad); err == nil {
		t.Fatalf("expected invalid threshold mode to fail")
	}
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Config{LogFormat: "text", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "event", "test_event")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "event=test_event") {
		t.Fatalf("unexpected text log output: %q", out)
	}

	buf.Reset()
	logger = NewLogger(config.Config{LogFormat: "json", LogLevel: "bogus"}, &buf)
	logger.Info("visible")
	if !strings.Contains(buf.String(), `"msg":"visible"`) {
		t.Fatalf("expected json output at info, got %q", buf.String())
	}
}

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9090": ":9090", ":7070": ":7070"}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}
