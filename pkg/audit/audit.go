// Package audit records security-relevant events in a capped, persisted
// log and derives per-user views from it. The log keeps the most recent
// 200 entries; every append rewrites the whole document.
package audit

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/khadijaf/securevault/internal/storage"
)

// MaxEntries is the number of log entries kept after every append.
const MaxEntries = 200

// TimestampFormat is the display format used for event timestamps.
const TimestampFormat = "2006-01-02 15:04:05"

// Severity levels, ordered by urgency.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Event types recorded by the logger.
const (
	EventLoginSuccess           = "LOGIN_SUCCESS"
	EventLoginFailed            = "LOGIN_FAILED"
	EventMultipleFailedAttempts = "MULTIPLE_FAILED_ATTEMPTS"
	EventWeakPasswordDetected   = "WEAK_PASSWORD_DETECTED"
	EventPasswordReset          = "PASSWORD_RESET"
)

// Credential operations accepted by LogPasswordOperation.
const (
	OpAdded   = "added"
	OpViewed  = "viewed"
	OpEdited  = "edited"
	OpDeleted = "deleted"
)

// weakAlertMarker identifies the weak-password alert description shape;
// the dedup rule in Log matches on it.
const weakAlertMarker = "Weak Passwords Detected"

// Event is one immutable audit log record.
type Event struct {
	Timestamp   string `json:"timestamp"`
	EventType   string `json:"event_type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	User        string `json:"user"`
	IPAddress   string `json:"ip_address"`
}

// WeakCandidate is the per-credential view the weak-password sweep needs.
type WeakCandidate struct {
	Service string
	Weak    bool
}

// Logger appends events to the persisted log and serves derived views.
type Logger struct {
	store      storage.DocStore
	mu         sync.Mutex
	now        func() time.Time
	localIP    func() string
	externalIP func() string
}

// NewLogger creates a logger backed by the given store.
func NewLogger(store storage.DocStore) *Logger {
	return &Logger{
		store:      store,
		now:        time.Now,
		localIP:    LocalIP,
		externalIP: SyntheticExternalIP,
	}
}

// Log appends an event, choosing the IP address by event type: failure
// events get a synthetic external address, everything else the local one.
func (l *Logger) Log(eventType, severity, description, user string) (Event, error) {
	var ip string
	if strings.Contains(strings.ToLower(eventType), "failed") {
		ip = l.externalIP()
	} else {
		ip = l.localIP()
	}
	return l.LogWithIP(eventType, severity, description, user, ip)
}

// LogWithIP appends an event with an explicit IP address. A fresh
// WEAK_PASSWORD_DETECTED alert replaces any live one for the same user.
// The log is truncated to the newest MaxEntries after the append.
func (l *Logger) LogWithIP(eventType, severity, description, user, ip string) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	event := Event{
		Timestamp:   l.now().Format(TimestampFormat),
		EventType:   eventType,
		Severity:    severity,
		Description: description,
		User:        user,
		IPAddress:   ip,
	}

	logs := l.loadAll()

	if eventType == EventWeakPasswordDetected {
		kept := logs[:0]
		for _, e := range logs {
			stale := e.EventType == EventWeakPasswordDetected &&
				e.User == user &&
				strings.Contains(e.Description, weakAlertMarker)
			if !stale {
				kept = append(kept, e)
			}
		}
		logs = kept
	}

	logs = append(logs, event)
	if len(logs) > MaxEntries {
		logs = logs[len(logs)-MaxEntries:]
	}

	if err := l.store.Save(storage.DocAuditLog, logs); err != nil {
		return Event{}, fmt.Errorf("audit: failed to persist log: %w", err)
	}
	return event, nil
}

// CheckWeakPasswords scans credentials for weak entries and raises one
// alert. The alert is suppressed when the user's 10 most recent events
// already contain a weak-password alert, so repeated sweeps of an
// unchanged vault stay quiet. Returns nil when nothing was logged.
func (l *Logger) CheckWeakPasswords(creds []WeakCandidate, user string) (*Event, error) {
	var weakServices []string
	for _, c := range creds {
		if c.Weak {
			weakServices = append(weakServices, c.Service)
		}
	}
	if len(weakServices) == 0 {
		return nil, nil
	}

	for _, e := range l.LogsForUser(user, 10) {
		if e.EventType == EventWeakPasswordDetected {
			return nil, nil
		}
	}

	listed := weakServices
	if len(listed) > 3 {
		listed = listed[:3]
	}
	serviceList := strings.Join(listed, ", ")
	if len(weakServices) > 3 {
		serviceList += fmt.Sprintf(" and %d more", len(weakServices)-3)
	}

	severity := SeverityWarning
	if len(weakServices) >= 5 {
		severity = SeverityCritical
	}

	event, err := l.Log(
		EventWeakPasswordDetected,
		severity,
		fmt.Sprintf("%d %s for services: %s", len(weakServices), weakAlertMarker, serviceList),
		user,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// LogLoginSuccess records a successful login.
func (l *Logger) LogLoginSuccess(user, device string) (Event, error) {
	return l.Log(
		EventLoginSuccess,
		SeverityInfo,
		fmt.Sprintf("User: %s | Device: %s", user, device),
		user,
	)
}

// LogLoginFailed records a failed login attempt from a synthetic external
// address. Unknown-account failures escalate to CRITICAL; plain invalid
// credentials stay at WARNING.
func (l *Logger) LogLoginFailed(user, reason, device string) (Event, error) {
	severity := SeverityCritical
	if strings.Contains(reason, "Invalid") {
		severity = SeverityWarning
	}
	return l.LogWithIP(
		EventLoginFailed,
		severity,
		fmt.Sprintf("User: %s | Device: %s | Reason: %s", user, device, reason),
		user,
		l.externalIP(),
	)
}

// LogPasswordOperation records one credential operation (added, viewed,
// edited or deleted) with its fixed severity and description.
func (l *Logger) LogPasswordOperation(op, service, user string) (Event, error) {
	severity, ok := map[string]string{
		OpAdded:   SeverityInfo,
		OpViewed:  SeverityWarning,
		OpEdited:  SeverityInfo,
		OpDeleted: SeverityCritical,
	}[op]
	if !ok {
		return Event{}, fmt.Errorf("audit: unknown password operation %q", op)
	}

	action := map[string]string{
		OpAdded:   "Created new password entry",
		OpViewed:  "Password revealed and copied",
		OpEdited:  "Password updated and modified",
		OpDeleted: "Permanently removed from vault",
	}[op]

	return l.Log(
		"PASSWORD_"+strings.ToUpper(op),
		severity,
		fmt.Sprintf("Service: %s | Action: %s", service, action),
		user,
	)
}

// LogMultipleFailedAttempts records a lockout-threshold breach.
func (l *Logger) LogMultipleFailedAttempts(user string, count int, ip string) (Event, error) {
	return l.LogWithIP(
		EventMultipleFailedAttempts,
		SeverityCritical,
		fmt.Sprintf("%d failed attempts from IP %s", count, ip),
		user,
		ip,
	)
}

// LogPasswordReset records a master password reset.
func (l *Logger) LogPasswordReset(user string) (Event, error) {
	return l.Log(
		EventPasswordReset,
		SeverityWarning,
		fmt.Sprintf("Master password reset for %s", user),
		user,
	)
}

// LogsForUser returns the user's most recent events, oldest first.
func (l *Logger) LogsForUser(user string, limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []Event
	for _, e := range l.loadAll() {
		if e.User == user {
			matched = append(matched, e)
		}
	}
	return tail(matched, limit)
}

// ErrorAlerts returns the user's recent WARNING and CRITICAL events.
func (l *Logger) ErrorAlerts(user string, limit int) []Event {
	return l.filterRecent(user, limit, func(e Event) bool {
		return e.Severity == SeverityWarning || e.Severity == SeverityCritical
	})
}

// LoginActivities returns the user's recent login-related events.
func (l *Logger) LoginActivities(user string, limit int) []Event {
	return l.filterRecent(user, limit, func(e Event) bool {
		return strings.Contains(e.EventType, "LOGIN")
	})
}

// PasswordOperations returns the user's recent credential operations.
func (l *Logger) PasswordOperations(user string, limit int) []Event {
	return l.filterRecent(user, limit, func(e Event) bool {
		return strings.Contains(e.EventType, "PASSWORD")
	})
}

// filterRecent takes a double-size window of the user's events, filters
// it, then trims to the newest limit entries. Filtering after windowing
// matches how the views are meant to page.
func (l *Logger) filterRecent(user string, limit int, keep func(Event) bool) []Event {
	var matched []Event
	for _, e := range l.LogsForUser(user, limit*2) {
		if keep(e) {
			matched = append(matched, e)
		}
	}
	return tail(matched, limit)
}

// loadAll reads the persisted log. A missing or undecodable document is
// an empty log, never an error.
func (l *Logger) loadAll() []Event {
	var logs []Event
	if err := l.store.Load(storage.DocAuditLog, &logs); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "warning: failed to read audit log, starting empty: %v\n", err)
		}
		return nil
	}
	return logs
}

func tail(events []Event, limit int) []Event {
	if limit > 0 && len(events) > limit {
		return events[len(events)-limit:]
	}
	return events
}
