package audit

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/khadijaf/securevault/internal/storage"
)

func newTestLogger(t *testing.T) (*Logger, *storage.MemStore) {
	t.Helper()
	store := storage.NewMemStore()
	l := NewLogger(store)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	l.localIP = func() string { return "10.0.0.5" }
	l.externalIP = func() string { return "203.45.67.90" }
	return l, store
}

func TestLogChoosesIPByEventType(t *testing.T) {
	l, _ := newTestLogger(t)

	success, err := l.Log(EventLoginSuccess, SeverityInfo, "ok", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if success.IPAddress != "10.0.0.5" {
		t.Errorf("success event got IP %q, want local", success.IPAddress)
	}

	failed, err := l.Log(EventLoginFailed, SeverityWarning, "bad", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if failed.IPAddress != "203.45.67.90" {
		t.Errorf("failed event got IP %q, want external", failed.IPAddress)
	}
}

func TestLogTimestampFormat(t *testing.T) {
	l, _ := newTestLogger(t)
	e, err := l.Log(EventLoginSuccess, SeverityInfo, "ok", "u")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := time.Parse(TimestampFormat, e.Timestamp); err != nil {
		t.Errorf("timestamp %q does not match format: %v", e.Timestamp, err)
	}
}

func TestWeakPasswordAlertReplacesPrevious(t *testing.T) {
	l, _ := newTestLogger(t)
	user := "alice@example.com"

	desc := "2 Weak Passwords Detected for services: gmail, github"
	if _, err := l.Log(EventWeakPasswordDetected, SeverityWarning, desc, user); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Log(EventWeakPasswordDetected, SeverityWarning, desc, user); err != nil {
		t.Fatal(err)
	}

	var count int
	for _, e := range l.LogsForUser(user, 0) {
		if e.EventType == EventWeakPasswordDetected {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one weak-password alert, got %d", count)
	}
}

func TestWeakPasswordAlertOtherUserKept(t *testing.T) {
	l, _ := newTestLogger(t)

	desc := "1 Weak Passwords Detected for services: gmail"
	if _, err := l.Log(EventWeakPasswordDetected, SeverityWarning, desc, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Log(EventWeakPasswordDetected, SeverityWarning, desc, "bob@example.com"); err != nil {
		t.Fatal(err)
	}

	if got := len(l.LogsForUser("alice@example.com", 0)); got != 1 {
		t.Errorf("alice's alert was dropped, got %d events", got)
	}
}

func TestLogCapsAtMaxEntries(t *testing.T) {
	l, _ := newTestLogger(t)
	user := "alice@example.com"

	for i := 0; i < MaxEntries+5; i++ {
		desc := fmt.Sprintf("event %d", i)
		if _, err := l.Log(EventLoginSuccess, SeverityInfo, desc, user); err != nil {
			t.Fatal(err)
		}
	}

	logs := l.LogsForUser(user, 0)
	if len(logs) != MaxEntries {
		t.Fatalf("expected %d entries, got %d", MaxEntries, len(logs))
	}
	if logs[0].Description != "event 5" {
		t.Errorf("expected oldest surviving entry to be event 5, got %q", logs[0].Description)
	}
	if logs[len(logs)-1].Description != fmt.Sprintf("event %d", MaxEntries+4) {
		t.Errorf("expected newest entry last, got %q", logs[len(logs)-1].Description)
	}
	for i := 1; i < len(logs); i++ {
		var prev, cur int
		fmt.Sscanf(logs[i-1].Description, "event %d", &prev)
		fmt.Sscanf(logs[i].Description, "event %d", &cur)
		if cur != prev+1 {
			t.Fatalf("entries out of order at %d: %q then %q", i, logs[i-1].Description, logs[i].Description)
		}
	}
}

func TestCheckWeakPasswordsNoWeakIsNoOp(t *testing.T) {
	l, _ := newTestLogger(t)
	event, err := l.CheckWeakPasswords([]WeakCandidate{
		{Service: "gmail", Weak: false},
	}, "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if event != nil {
		t.Errorf("expected no alert for all-strong vault, got %+v", event)
	}
}

func TestCheckWeakPasswordsSuppressedInRecentWindow(t *testing.T) {
	l, _ := newTestLogger(t)
	user := "alice@example.com"
	creds := []WeakCandidate{{Service: "gmail", Weak: true}}

	first, err := l.CheckWeakPasswords(creds, user)
	if err != nil {
		t.Fatal(err)
	}
	if first == nil {
		t.Fatal("expected an alert on first sweep")
	}

	second, err := l.CheckWeakPasswords(creds, user)
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Error("expected second sweep within the recency window to be suppressed")
	}
}

func TestCheckWeakPasswordsFiresAgainAfterWindowAges(t *testing.T) {
	l, _ := newTestLogger(t)
	user := "alice@example.com"
	creds := []WeakCandidate{{Service: "gmail", Weak: true}}

	if _, err := l.CheckWeakPasswords(creds, user); err != nil {
		t.Fatal(err)
	}

	// Push the alert out of the 10-event recency window.
	for i := 0; i < 10; i++ {
		if _, err := l.LogLoginSuccess(user, "laptop"); err != nil {
			t.Fatal(err)
		}
	}

	again, err := l.CheckWeakPasswords(creds, user)
	if err != nil {
		t.Fatal(err)
	}
	if again == nil {
		t.Error("expected a fresh alert after the window aged out")
	}
}

func TestCheckWeakPasswordsSeverityAndDescription(t *testing.T) {
	l, _ := newTestLogger(t)

	few, err := l.CheckWeakPasswords([]WeakCandidate{
		{Service: "gmail", Weak: true},
		{Service: "github", Weak: true},
	}, "few@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if few.Severity != SeverityWarning {
		t.Errorf("expected WARNING below 5 weak, got %s", few.Severity)
	}
	if !strings.Contains(few.Description, "gmail, github") {
		t.Errorf("expected services listed, got %q", few.Description)
	}

	many, err := l.CheckWeakPasswords([]WeakCandidate{
		{Service: "a", Weak: true},
		{Service: "b", Weak: true},
		{Service: "c", Weak: true},
		{Service: "d", Weak: true},
		{Service: "e", Weak: true},
	}, "many@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if many.Severity != SeverityCritical {
		t.Errorf("expected CRITICAL at 5 weak, got %s", many.Severity)
	}
	if !strings.Contains(many.Description, "a, b, c and 2 more") {
		t.Errorf("expected truncated service list with overflow, got %q", many.Description)
	}
}

func TestLogLoginFailedSeverity(t *testing.T) {
	l, _ := newTestLogger(t)

	invalid, err := l.LogLoginFailed("alice@example.com", "Invalid password", "laptop")
	if err != nil {
		t.Fatal(err)
	}
	if invalid.Severity != SeverityWarning {
		t.Errorf("invalid-credentials failure should be WARNING, got %s", invalid.Severity)
	}
	if invalid.IPAddress != "203.45.67.90" {
		t.Errorf("failed login should use external IP, got %s", invalid.IPAddress)
	}

	unknown, err := l.LogLoginFailed("ghost@example.com", "Account not found", "laptop")
	if err != nil {
		t.Fatal(err)
	}
	if unknown.Severity != SeverityCritical {
		t.Errorf("unknown-account failure should be CRITICAL, got %s", unknown.Severity)
	}
}

func TestLogPasswordOperation(t *testing.T) {
	l, _ := newTestLogger(t)
	user := "alice@example.com"

	cases := []struct {
		op        string
		eventType string
		severity  string
	}{
		{OpAdded, "PASSWORD_ADDED", SeverityInfo},
		{OpViewed, "PASSWORD_VIEWED", SeverityWarning},
		{OpEdited, "PASSWORD_EDITED", SeverityInfo},
		{OpDeleted, "PASSWORD_DELETED", SeverityCritical},
	}
	for _, tc := range cases {
		e, err := l.LogPasswordOperation(tc.op, "gmail", user)
		if err != nil {
			t.Fatalf("%s: %v", tc.op, err)
		}
		if e.EventType != tc.eventType {
			t.Errorf("%s: event type %q, want %q", tc.op, e.EventType, tc.eventType)
		}
		if e.Severity != tc.severity {
			t.Errorf("%s: severity %q, want %q", tc.op, e.Severity, tc.severity)
		}
		if !strings.Contains(e.Description, "Service: gmail") {
			t.Errorf("%s: description missing service, got %q", tc.op, e.Description)
		}
	}

	if _, err := l.LogPasswordOperation("rotated", "gmail", user); err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestViews(t *testing.T) {
	l, _ := newTestLogger(t)
	user := "alice@example.com"

	if _, err := l.LogLoginSuccess(user, "laptop"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LogLoginFailed(user, "Invalid password", "laptop"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LogPasswordOperation(OpAdded, "gmail", user); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LogPasswordOperation(OpDeleted, "github", user); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LogLoginSuccess("bob@example.com", "desktop"); err != nil {
		t.Fatal(err)
	}

	if got := len(l.LogsForUser(user, 20)); got != 4 {
		t.Errorf("LogsForUser: expected 4 events, got %d", got)
	}
	if got := len(l.LoginActivities(user, 20)); got != 2 {
		t.Errorf("LoginActivities: expected 2 events, got %d", got)
	}
	if got := len(l.PasswordOperations(user, 20)); got != 2 {
		t.Errorf("PasswordOperations: expected 2 events, got %d", got)
	}
	// Failed login (WARNING) and deletion (CRITICAL).
	if got := len(l.ErrorAlerts(user, 20)); got != 2 {
		t.Errorf("ErrorAlerts: expected 2 events, got %d", got)
	}
}

func TestViewsTrimToLimit(t *testing.T) {
	l, _ := newTestLogger(t)
	user := "alice@example.com"

	for i := 0; i < 8; i++ {
		if _, err := l.LogLoginSuccess(user, "laptop"); err != nil {
			t.Fatal(err)
		}
	}

	got := l.LoginActivities(user, 3)
	if len(got) != 3 {
		t.Errorf("expected view trimmed to 3, got %d", len(got))
	}
}

func TestViewsFilterInsideDoubleWindow(t *testing.T) {
	l, _ := newTestLogger(t)
	user := "alice@example.com"

	// Alternating stream: the newest 4 events hold only 2 logins, but
	// the 2x window of 8 holds all 4.
	for i := 0; i < 4; i++ {
		if _, err := l.LogLoginSuccess(user, "laptop"); err != nil {
			t.Fatal(err)
		}
		if _, err := l.LogPasswordOperation(OpAdded, "gmail", user); err != nil {
			t.Fatal(err)
		}
	}

	got := l.LoginActivities(user, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 logins from the double-size window, got %d", len(got))
	}
	for _, e := range got {
		if e.EventType != EventLoginSuccess {
			t.Errorf("unexpected event in login view: %s", e.EventType)
		}
	}
}

func TestCorruptLogRecoversAsEmpty(t *testing.T) {
	l, store := newTestLogger(t)
	user := "alice@example.com"

	if _, err := l.LogLoginSuccess(user, "laptop"); err != nil {
		t.Fatal(err)
	}
	store.Corrupt(storage.DocAuditLog)

	if got := l.LogsForUser(user, 0); len(got) != 0 {
		t.Errorf("corrupt log should read as empty, got %d events", len(got))
	}
	if _, err := l.LogLoginSuccess(user, "laptop"); err != nil {
		t.Fatalf("logging over a corrupt document should restart the log: %v", err)
	}
	if got := len(l.LogsForUser(user, 0)); got != 1 {
		t.Errorf("expected log restarted with 1 entry, got %d", got)
	}
}

func TestSyntheticExternalIPRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		ip := SyntheticExternalIP()
		if !strings.HasPrefix(ip, "203.45.67.") {
			t.Fatalf("unexpected prefix: %s", ip)
		}
		var last int
		fmt.Sscanf(ip, "203.45.67.%d", &last)
		if last < 85 || last > 99 {
			t.Fatalf("last octet %d out of range", last)
		}
	}
}
