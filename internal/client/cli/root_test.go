package cli

import "testing"

func TestGetStatus(t *testing.T) {
	a := &App{}
	if got := a.getStatus(); got != "" {
		t.Fatalf("anonymous status = %q, want empty", got)
	}

	a.userName = "alice"
	if got := a.getStatus(); got != "(alice)" {
		t.Fatalf("logged-in status = %q, want (alice)", got)
	}
}
