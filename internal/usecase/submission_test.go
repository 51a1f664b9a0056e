package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"club-site/internal/domain"
)

var submissionIDPattern = regexp.MustCompile(`^contact_\d+_[0-9a-z]{9}$`)

func newTestSubmissionService(t *testing.T, s Store) *SubmissionService {
	t.Helper()
	svc, err := NewSubmissionService(s)
	require.NoError(t, err)
	return svc
}

func expectError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestNewSubmissionService_ValidatesDependency(t *testing.T) {
	_, err := NewSubmissionService(nil)
	require.Error(t, err)
}

func TestSubmit_HappyPath(t *testing.T) {
	store := newMemStore()
	svc := newTestSubmissionService(t, store)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 14, 8, 0, 123_000_000, time.UTC) }

	out, err := svc.Submit(context.Background(), SubmitInput{Name: "Ada", Email: "ada@example.com", Message: "Hello!"})
	require.NoError(t, err)
	require.Equal(t, "Thank you for your message! We'll get back to you soon.", out.Message)
	require.Regexp(t, submissionIDPattern, out.SubmissionID)
	require.Contains(t, out.SubmissionID, "contact_1792159680123_")

	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, domain.ContactSubmission{
		ID:        out.SubmissionID,
		Name:      "Ada",
		Email:     "ada@example.com",
		Message:   "Hello!",
		Timestamp: "2026-10-16T14:08:00.123Z",
		Status:    domain.StatusNew,
	}, subs[0])
}

func TestSubmit_StoresFieldsVerbatim(t *testing.T) {
	store := newMemStore()
	svc := newTestSubmissionService(t, store)

	in := SubmitInput{Name: "  Ada Lovelace ", Email: "ada.l@maths.example.org", Message: "Line one\nLine two  "}
	out, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)

	var stored domain.ContactSubmission
	require.NoError(t, json.Unmarshal(store.data[out.SubmissionID], &stored))
	require.Equal(t, in.Name, stored.Name)
	require.Equal(t, in.Email, stored.Email)
	require.Equal(t, in.Message, stored.Message)
}

func TestSubmit_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		in   SubmitInput
	}{
		{name: "all empty", in: SubmitInput{}},
		{name: "no name", in: SubmitInput{Email: "ada@example.com", Message: "Hi"}},
		{name: "no email", in: SubmitInput{Name: "Ada", Message: "Hi"}},
		{name: "no message", in: SubmitInput{Name: "Ada", Email: "ada@example.com"}},
		{name: "missing wins over bad email", in: SubmitInput{Email: "not-an-email", Message: "Hi"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			svc := newTestSubmissionService(t, store)
			_, err := svc.Submit(context.Background(), tc.in)
			expectError(t, err, ErrorValidation, ReasonMissingField)
			require.Zero(t, store.count(submissionKeyPrefix))
		})
	}
}

func TestSubmit_WhitespaceOnlyFieldsAreAccepted(t *testing.T) {
	store := newMemStore()
	svc := newTestSubmissionService(t, store)

	out, err := svc.Submit(context.Background(), SubmitInput{Name: "   ", Email: "ada@example.com", Message: "\t"})
	require.NoError(t, err)

	var stored domain.ContactSubmission
	require.NoError(t, json.Unmarshal(store.data[out.SubmissionID], &stored))
	require.Equal(t, "   ", stored.Name)
	require.Equal(t, "\t", stored.Message)
}

func TestSubmit_InvalidEmail(t *testing.T) {
	for _, email := range []string{
		"not-an-email", "ada@example", "ada@@example.com", "ada lovelace@example.com", "@example.com", "ada@.com", "ada@example.", "ada@exa mple.com",
		"ada\u00a0x@example.com",
		"ada@exa\u2003mple.com",
		"ada@example.c\u3000om",
		"\ufeffada@example.com",
		"ada\vx@example.com",
		"ada@example\u2028.com",
		"ada\u202fx@example.com",
	} {
		t.Run(email, func(t *testing.T) {
			store := newMemStore()
			svc := newTestSubmissionService(t, store)
			_, err := svc.Submit(context.Background(), SubmitInput{Name: "Ada", Email: email, Message: "Hi"})
			expectError(t, err, ErrorValidation, ReasonInvalidEmail)
			require.Zero(t, store.count(submissionKeyPrefix))
		})
	}
}

func TestSubmit_AcceptsSimpleEmails(t *testing.T) {
	for _, email := range []string{"a@b.c", "first.last+tag@sub.example.co.uk", "x_y@d-1.io"} {
		svc := newTestSubmissionService(t, newMemStore())
		_, err := svc.Submit(context.Background(), SubmitInput{Name: "Ada", Email: email, Message: "Hi"})
		require.NoError(t, err, email)
	}
}

func TestSubmit_StorageErrors(t *testing.T) {
	store := newMemStore()
	store.createErr = errors.New("dynamodb down")
	svc := newTestSubmissionService(t, store)
	_, err := svc.Submit(context.Background(), SubmitInput{Name: "Ada", Email: "ada@example.com", Message: "Hi"})
	expectError(t, err, ErrorStorage, "store_write_error")
}

func TestSubmit_IDCollisionIsNotOverwritten(t *testing.T) {
	store := newMemStore()
	svc := newTestSubmissionService(t, store)
	fixed := time.Date(2026, 10, 16, 14, 8, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	svc.token = func() (string, error) { return "abcdefghi", nil }

	first, err := svc.Submit(context.Background(), SubmitInput{Name: "Ada", Email: "ada@example.com", Message: "first"})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), SubmitInput{Name: "Bob", Email: "bob@example.com", Message: "second"})
	expectError(t, err, ErrorStorage, "submission_id_conflict")

	var stored domain.ContactSubmission
	require.NoError(t, json.Unmarshal(store.data[first.SubmissionID], &stored))
	require.Equal(t, "first", stored.Message)
}

func TestSubmit_TokenError(t *testing.T) {
	svc := newTestSubmissionService(t, newMemStore())
	svc.token = func() (string, error) { return "", errors.New("entropy exhausted") }
	_, err := svc.Submit(context.Background(), SubmitInput{Name: "Ada", Email: "ada@example.com", Message: "Hi"})
	expectError(t, err, ErrorInternal, "id_token_error")
}

func TestList_Empty(t *testing.T) {
	svc := newTestSubmissionService(t, newMemStore())
	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, subs)
	require.Empty(t, subs)
}

func TestList_NewestFirst(t *testing.T) {
	store := newMemStore()
	svc := newTestSubmissionService(t, store)
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		_, err := svc.Submit(context.Background(), SubmitInput{Name: name, Email: "a@b.co", Message: "hi"})
		require.NoError(t, err)
	}
	// Ignores the non-submission key sharing the store.
	require.NoError(t, store.Set(context.Background(), "team_members", []string{}))

	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 3)
	require.Equal(t, "third", subs[0].Name)
	require.Equal(t, "second", subs[1].Name)
	require.Equal(t, "first", subs[2].Name)
}

func TestList_UnparseableTimestampSortsLast(t *testing.T) {
	store := newMemStore()
	store.data["contact_1_a"] = json.RawMessage(`{"id":"contact_1_a","name":"broken","timestamp":"yesterday"}`)
	store.data["contact_2_b"] = json.RawMessage(`{"id":"contact_2_b","name":"ok","timestamp":"2026-10-16T09:00:00.000Z"}`)
	svc := newTestSubmissionService(t, store)

	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", subs[0].Name)
	require.Equal(t, "broken", subs[1].Name)
}

func TestList_OrdersByTimestampEvenWithoutIDs(t *testing.T) {
	store := newMemStore()
	store.data["contact_1_a"] = json.RawMessage(`{"name":"older","timestamp":"2026-10-16T08:00:00.000Z"}`)
	store.data["contact_2_b"] = json.RawMessage(`{"name":"newest","timestamp":"2026-10-16T10:00:00.000Z"}`)
	store.data["contact_3_c"] = json.RawMessage(`{"id":"dup","name":"middle","timestamp":"2026-10-16T09:00:00.000Z"}`)
	store.data["contact_4_d"] = json.RawMessage(`{"id":"dup","name":"oldest","timestamp":"2026-10-16T07:00:00.000Z"}`)
	svc := newTestSubmissionService(t, store)

	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	names := make([]string, len(subs))
	for i, sub := range subs {
		names[i] = sub.Name
	}
	require.Equal(t, []string{"newest", "middle", "older", "oldest"}, names)
}

func TestList_Idempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestSubmissionService(t, store)
	for i := 0; i < 5; i++ {
		_, err := svc.Submit(context.Background(), SubmitInput{Name: fmt.Sprintf("n%d", i), Email: "a@b.co", Message: "hi"})
		require.NoError(t, err)
	}

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	second, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestList_StorageErrors(t *testing.T) {
	store := newMemStore()
	store.scanErr = errors.New("query failed")
	svc := newTestSubmissionService(t, store)
	_, err := svc.List(context.Background())
	expectError(t, err, ErrorStorage, "store_read_error")

	store = newMemStore()
	store.data["contact_1_a"] = json.RawMessage(`not-json`)
	svc = newTestSubmissionService(t, store)
	subs, err := svc.List(context.Background())
	expectError(t, err, ErrorStorage, "store_decode_error")
	require.Nil(t, subs)
}

func TestSubmit_ConcurrentSubmitsGetDistinctIDs(t *testing.T) {
	const n = 1000
	store := newMemStore()
	svc := newTestSubmissionService(t, store)

	ids := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			out, err := svc.Submit(context.Background(), SubmitInput{
				Name:    fmt.Sprintf("visitor-%d", i),
				Email:   fmt.Sprintf("visitor%d@example.com", i),
				Message: "hello",
			})
			if err != nil {
				return err
			}
			ids[i] = out.SubmissionID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	unique := make(map[string]struct{}, n)
	for _, id := range ids {
		require.Regexp(t, submissionIDPattern, id)
		unique[id] = struct{}{}
	}
	require.Len(t, unique, n)

	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, n)
}

func TestRandomToken(t *testing.T) {
	tok, err := randomToken()
	require.NoError(t, err)
	require.Regexp(t, `^[0-9a-z]{9}$`, tok)
}
