package bankerrors

import "testing"

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&InsufficientFunds{}, "insufficient_funds"},
		{&StaleSync{}, "stale_sync"},
		{&AccountMissing{}, "account_missing"},
		{&SpentExceedsAuthorized{}, "spent_exceeds_authorized"},
	}
	for _, c := range cases {
		if got := Kind(c.err); got != c.want {
			t.Errorf("Kind(%T) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestIsStaleSync(t *testing.T) {
	if !IsStaleSync(&StaleSync{Account: "campaign"}) {
		t.Fatalf("IsStaleSync(*StaleSync) = false, want true")
	}
	if !IsStaleSync(&RemoteError{KindName: "stale_sync", Message: "stale"}) {
		t.Fatalf("IsStaleSync(*RemoteError{stale_sync}) = false, want true")
	}
	if IsStaleSync(&RemoteError{KindName: "insufficient_funds", Message: "no funds"}) {
		t.Fatalf("IsStaleSync(*RemoteError{insufficient_funds}) = true, want false")
	}
	if IsStaleSync(&AccountMissing{Key: "campaign"}) {
		t.Fatalf("IsStaleSync(*AccountMissing) = true, want false")
	}
}
