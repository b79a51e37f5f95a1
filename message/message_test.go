package message

import "testing"

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "Hello, world!")

	if msg.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, msg.Role)
	}

	if msg.Content != "Hello, world!" {
		t.Errorf("Expected content 'Hello, world!', got '%s'", msg.Content)
	}

	if msg.ID == "" {
		t.Error("Expected non-empty ID")
	}

	if msg.CreatedAt.IsZero() {
		t.Error("Expected non-zero created time")
	}
}

func TestCloneCopiesMetadata(t *testing.T) {
	msg := NewMessage(RoleAssistant, "answer")
	msg.Metadata["source"] = "react_docs"

	cloned := Clone(msg)
	cloned.Metadata["source"] = "changed"

	if msg.Metadata["source"] != "react_docs" {
		t.Errorf("Expected original metadata untouched, got %v", msg.Metadata["source"])
	}
	if cloned.Content != msg.Content {
		t.Errorf("Expected content %q, got %q", msg.Content, cloned.Content)
	}
}

func TestCloneNil(t *testing.T) {
	if Clone(nil) != nil {
		t.Error("Expected nil clone for nil message")
	}
}
