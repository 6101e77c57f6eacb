package model

import "testing"

func TestParticipantsKeyIsOrderIndependent(t *testing.T) {
	a := ParticipantsKey("user-1", "user-2")
	b := ParticipantsKey("user-2", "user-1")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if a != "user-1:user-2" {
		t.Fatalf("unexpected key %q", a)
	}
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{Participants: []string{"buyer", "owner"}}

	if !c.HasParticipant("buyer") || !c.HasParticipant("owner") {
		t.Fatal("participants not recognized")
	}
	if c.HasParticipant("stranger") {
		t.Fatal("stranger recognized as participant")
	}

	if got := c.OtherParticipant("buyer"); got != "owner" {
		t.Fatalf("OtherParticipant(buyer) = %q", got)
	}
	if got := c.OtherParticipant("owner"); got != "buyer" {
		t.Fatalf("OtherParticipant(owner) = %q", got)
	}
	if got := c.OtherParticipant("stranger"); got != "buyer" && got != "owner" {
		// a non-participant gets the first counterpart; it must not panic
		t.Fatalf("OtherParticipant(stranger) = %q", got)
	}
}
