package photoshare

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
)

var (
	codePattern     = regexp.MustCompile(`^[0-9]{6}$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]+$`)
)

// Credentials are checked for shape only. The password is never stored.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Validate() error {
	username := strings.TrimSpace(c.Username)
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrUsernameLength
	}
	// Usernames end up in profile URLs.
	if !usernamePattern.MatchString(username) {
		return ErrUsernameChars
	}
	if utf8.RuneCountInString(c.Password) < MinPasswordLength {
		return ErrPasswordLength
	}
	return nil
}

// VerificationPolicy decides whether a login needs a one-time code and
// whether a code is accepted. None of the implementations here verify
// anything real.
type VerificationPolicy interface {
	RequireSecondFactor(username string) bool
	Verify(ctx context.Context, username string, code string) bool
}

// RandomPolicy challenges and accepts at random. It is a stand-in for a
// real verifier and has no security value.
type RandomPolicy struct {
	ChallengeRate float64
	AcceptRate    float64
}

func NewRandomPolicy() RandomPolicy {
	return RandomPolicy{ChallengeRate: 0.5, AcceptRate: 0.9}
}

func (p RandomPolicy) RequireSecondFactor(string) bool {
	return rand.Float64() < p.ChallengeRate
}

func (p RandomPolicy) Verify(context.Context, string, string) bool {
	return rand.Float64() < p.AcceptRate
}

type NoSecondFactor struct{}

func (NoSecondFactor) RequireSecondFactor(string) bool             { return false }
func (NoSecondFactor) Verify(context.Context, string, string) bool { return true }

type FixedPolicy struct {
	Require bool
	Accept  bool
}

func (p FixedPolicy) RequireSecondFactor(string) bool             { return p.Require }
func (p FixedPolicy) Verify(context.Context, string, string) bool { return p.Accept }

// Challenge is a login waiting for its one-time code.
type Challenge struct {
	Username string
	IssuedAt time.Time
}

type Authenticator struct {
	Policy VerificationPolicy
	// Latency is a simulated delay before a code is checked.
	Latency time.Duration
}

// Begin validates creds and either logs in straight away (nil Challenge) or
// returns a Challenge that must be completed with Verify.
func (a Authenticator) Begin(ctx context.Context, store *Store, creds Credentials) (*Challenge, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(creds.Username)
	if a.Policy.RequireSecondFactor(username) {
		return &Challenge{Username: username}, nil
	}
	store.Login(ctx, username)
	return nil, nil
}

// Verify completes a Challenge. ErrCodeRejected is retryable with the same
// Challenge.
func (a Authenticator) Verify(ctx context.Context, store *Store, challenge *Challenge, code string) error {
	if challenge == nil {
		return ErrNoChallenge
	}
	if !codePattern.MatchString(code) {
		return ErrCodeFormat
	}
	if err := wait(ctx, a.Latency); err != nil {
		return err
	}
	if !a.Policy.Verify(ctx, challenge.Username, code) {
		return ErrCodeRejected
	}
	store.Login(ctx, challenge.Username)
	return nil
}

// Challenges holds at most one pending Challenge per device.
type Challenges struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]Challenge
}

func NewChallenges(ttl time.Duration) *Challenges {
	return &Challenges{ttl: ttl, now: time.Now, pending: make(map[string]Challenge)}
}

func (c *Challenges) Put(device string, challenge Challenge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	challenge.IssuedAt = c.now()
	c.pending[device] = challenge
}

func (c *Challenges) Get(device string) (*Challenge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[device]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(ch.IssuedAt) > c.ttl {
		delete(c.pending, device)
		return nil, false
	}
	return &ch, true
}

func (c *Challenges) Delete(device string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, device)
}
