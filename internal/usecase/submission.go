package usecase

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"sort"
	"time"

	"club-site/internal/domain"
	"club-site/internal/repository"
)

const (
	submissionKeyPrefix = "contact_"
	idTokenLength       = 9
	idTokenAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	timestampLayout     = "2006-01-02T15:04:05.000Z07:00"

	// ConfirmationMessage is shown verbatim to the visitor after a submit.
	ConfirmationMessage = "Thank you for your message! We'll get back to you soon."
)

// emailChar excludes every character ECMAScript treats as whitespace; RE2's
// \s alone only covers ASCII.
const emailChar = `[^\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}@]`

var emailPattern = regexp.MustCompile(`^` + emailChar + `+@` + emailChar + `+\.` + emailChar + `+$`)

// Store is the key-value store contract the services depend on.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value any) error
	Create(ctx context.Context, key string, value any) error
	GetByPrefix(ctx context.Context, prefix string) ([]repository.Entry, error)
}

type SubmissionService struct {
	store Store
	now   func() time.Time
	token func() (string, error)
}

type SubmitInput struct {
	Name    string
	Email   string
	Message string
}

type SubmitOutput struct {
	Message      string
	SubmissionID string
}

func NewSubmissionService(s Store) (*SubmissionService, error) {
	if s == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	return &SubmissionService{store: s, now: time.Now, token: randomToken}, nil
}

// Submit validates one contact submission and persists it under a fresh id.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error) {
	if in.Name == "" || in.Email == "" || in.Message == "" {
		return SubmitOutput{}, newError(ErrorValidation, ReasonMissingField, nil)
	}
	if !emailPattern.MatchString(in.Email) {
		return SubmitOutput{}, newError(ErrorValidation, ReasonInvalidEmail, nil)
	}

	now := s.now().UTC()
	tok, err := s.token()
	if err != nil {
		return SubmitOutput{}, newError(ErrorInternal, "id_token_error", err)
	}
	sub := domain.ContactSubmission{
		ID:        fmt.Sprintf("%s%d_%s", submissionKeyPrefix, now.UnixMilli(), tok),
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		Timestamp: now.Format(timestampLayout),
		Status:    domain.StatusNew,
	}

	if err := s.store.Create(ctx, sub.ID, sub); err != nil {
		if errors.Is(err, repository.ErrKeyExists) {
			return SubmitOutput{}, newError(ErrorStorage, "submission_id_conflict", err)
		}
		return SubmitOutput{}, newError(ErrorStorage, "store_write_error", err)
	}

	slog.InfoContext(ctx, "contact submission stored", "submission_id", sub.ID)
	return SubmitOutput{Message: ConfirmationMessage, SubmissionID: sub.ID}, nil
}

// List returns every stored submission, most recent first.
func (s *SubmissionService) List(ctx context.Context) ([]domain.ContactSubmission, error) {
	entries, err := s.store.GetByPrefix(ctx, submissionKeyPrefix)
	if err != nil {
		return nil, newError(ErrorStorage, "store_read_error", err)
	}

	recs := make([]storedSubmission, 0, len(entries))
	for _, e := range entries {
		var sub domain.ContactSubmission
		if err := json.Unmarshal(e.Value, &sub); err != nil {
			return nil, newError(ErrorStorage, "store_decode_error", fmt.Errorf("decode %q: %w", e.Key, err))
		}
		ts, err := time.Parse(time.RFC3339Nano, sub.Timestamp)
		recs = append(recs, storedSubmission{sub: sub, at: ts, timed: err == nil})
	}
	sortNewestFirst(recs)

	subs := make([]domain.ContactSubmission, len(recs))
	for i, r := range recs {
		subs[i] = r.sub
	}
	return subs, nil
}

type storedSubmission struct {
	sub   domain.ContactSubmission
	at    time.Time
	timed bool
}

// sortNewestFirst orders by timestamp descending. Unparseable timestamps
// sort last; ties keep store order.
func sortNewestFirst(recs []storedSubmission) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.timed != b.timed {
			return a.timed
		}
		return a.at.After(b.at)
	})
}

func randomToken() (string, error) {
	limit := big.NewInt(int64(len(idTokenAlphabet)))
	b := make([]byte, idTokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = idTokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
