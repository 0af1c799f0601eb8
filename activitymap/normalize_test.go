package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/hcsuite/go-auth"
	"github.com/hcsuite/go-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventRoleAssigned,
		AccountID: "acc-100",
		Metadata: map[string]any{
			"role": "admin",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != auth.SystemProvenance {
		t.Fatalf("expected actor_id %q, got %q", auth.SystemProvenance, out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventRoleAssigned) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventRoleAssigned, out.Verb)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ObjectID != "acc-100" {
		t.Fatalf("expected object_id acc-100, got %q", out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if out.Outcome != activitymap.OutcomeSuccess {
		t.Fatalf("expected success outcome, got %q", out.Outcome)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["role"] != "admin" {
		t.Fatalf("expected metadata role admin, got %#v", out.Metadata["role"])
	}
}

func TestNormalizeFailureEvents(t *testing.T) {
	t.Parallel()

	for _, eventType := range []auth.ActivityEventType{
		auth.ActivityEventCredentialFailed,
		auth.ActivityEventTokenRejected,
	} {
		out := activitymap.Normalize(auth.ActivityEvent{
			EventType: eventType,
			Metadata:  map[string]any{auth.MetadataKeyErrorKind: auth.TextCodeMismatchCredential},
		})
		if out.Outcome != activitymap.OutcomeFailure {
			t.Fatalf("expected failure outcome for %s, got %q", eventType, out.Outcome)
		}
		if out.Metadata[auth.MetadataKeyErrorKind] != auth.TextCodeMismatchCredential {
			t.Fatalf("expected kind metadata to be kept, got %#v", out.Metadata)
		}
	}
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	out := activitymap.Normalize(
		auth.ActivityEvent{EventType: auth.ActivityEventAccountCreated},
		activitymap.WithActor("operator"),
		activitymap.WithChannel("cli"),
		activitymap.WithObjectType("user"),
		activitymap.WithClock(func() time.Time { return fixed }),
		nil,
	)

	if out.ActorID != "operator" || out.Channel != "cli" || out.ObjectType != "user" {
		t.Fatalf("unexpected options result %#v", out)
	}
	if !out.OccurredAt.Equal(fixed) {
		t.Fatalf("expected clock fallback, got %v", out.OccurredAt)
	}
	if out.Metadata != nil {
		t.Fatalf("expected nil metadata, got %#v", out.Metadata)
	}
}

func TestNormalizeDoesNotAliasMetadata(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"role": "admin"}
	out := activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventRoleAssigned, Metadata: meta})
	out.Metadata["role"] = "owner"

	if meta["role"] != "admin" {
		t.Fatalf("expected source metadata to be untouched")
	}
}
