// Package lookup answers small one-off questions about users and pages and
// performs the single-page user maintenance edits.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/mediawiki"
)

var (
	ErrUnknownUser    = errors.New("user does not exist")
	ErrNoRegistration = errors.New("user has no registration date")
	ErrIllegalName    = errors.New("name contains characters that are not allowed")
)

const (
	DefaultCreatePageSummary = "Creating user page"
	DefaultBotEditSummary    = "Bot edit"
)

// Wiki is the part of the action API the lookups use.
type Wiki interface {
	Users(ctx context.Context, names ...string) ([]mediawiki.User, error)
	FirstRevision(ctx context.Context, title string) (*mediawiki.Revision, error)
	PageContent(ctx context.Context, title string) (*mediawiki.Page, error)
	Edit(ctx context.Context, req mediawiki.EditRequest) (*mediawiki.EditResult, error)
	Purge(ctx context.Context, titles ...string) error
}

// Service runs lookups against one wiki.
type Service struct {
	wiki   Wiki
	titles *mediawiki.TitleValidator
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Service. A nil validator means the default character set.
func New(wiki Wiki, titles *mediawiki.TitleValidator, logger *zap.Logger) *Service {
	if titles == nil {
		titles = mediawiki.DefaultTitleValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{wiki: wiki, titles: titles, logger: logger, now: time.Now}
}

// AccountAge is a user's registration date and how long ago it was.
type AccountAge struct {
	User       string        `json:"user"`
	UserID     int64         `json:"userid"`
	Registered time.Time     `json:"registered"`
	Age        time.Duration `json:"age"`
}

// Days returns the age in whole days.
func (a AccountAge) Days() int { return int(a.Age.Hours() / 24) }

// AccountAge looks up when user registered.
func (s *Service) AccountAge(ctx context.Context, user string) (*AccountAge, error) {
	u, err := s.user(ctx, user)
	if err != nil {
		return nil, err
	}
	if u.Registration == nil || u.Registration.IsZero() {
		return nil, fmt.Errorf("%s: %w", u.Name, ErrNoRegistration)
	}
	return &AccountAge{
		User:       u.Name,
		UserID:     u.UserID,
		Registered: *u.Registration,
		Age:        s.now().Sub(*u.Registration),
	}, nil
}

// Availability is the answer to a username check.
type Availability struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	UserID    int64  `json:"userid,omitempty"`
}

// UsernameAvailable reports whether name is unclaimed. Names that could not
// be a title are rejected without a request.
func (s *Service) UsernameAvailable(ctx context.Context, name string) (*Availability, error) {
	name = mediawiki.NormalizeUser(name)
	if err := s.titles.Check("User:" + name); err != nil || name == "" {
		return nil, fmt.Errorf("%q: %w", name, ErrIllegalName)
	}
	users, err := s.wiki.Users(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0].Invalid {
		return nil, fmt.Errorf("%q: %w", name, ErrIllegalName)
	}
	u := users[0]
	if u.Name != "" {
		name = u.Name
	}
	return &Availability{Name: name, Available: u.Missing, UserID: u.UserID}, nil
}

// Creator is the first revision of a page.
type Creator struct {
	Title     string    `json:"title"`
	User      string    `json:"user"`
	UserID    int64     `json:"userid"`
	RevID     int64     `json:"revid"`
	Timestamp time.Time `json:"timestamp"`
}

// Anonymous reports whether the page was created by an IP.
func (c Creator) Anonymous() bool { return c.UserID == 0 }

// PageCreator finds who created title.
func (s *Service) PageCreator(ctx context.Context, title string) (*Creator, error) {
	title = strings.TrimSpace(title)
	if err := s.titles.Check(title); err != nil {
		return nil, err
	}
	rev, err := s.wiki.FirstRevision(ctx, title)
	if err != nil {
		return nil, err
	}
	return &Creator{
		Title:     title,
		User:      rev.User,
		UserID:    rev.UserID,
		RevID:     rev.RevID,
		Timestamp: rev.Timestamp,
	}, nil
}

// PurgeUserPage purges User:<name> so its edit tally is rebuilt.
func (s *Service) PurgeUserPage(ctx context.Context, user string) error {
	name := mediawiki.NormalizeUser(user)
	if name == "" {
		return fmt.Errorf("%q: %w", user, ErrIllegalName)
	}
	if err := s.wiki.Purge(ctx, "User:"+name); err != nil {
		return err
	}
	s.logger.Info("purged user page", zap.String("user", name))
	return nil
}

// CreateUserPage creates User:<name> from template, failing if it already
// exists. An empty template means {{w:User:<name>}}.
func (s *Service) CreateUserPage(ctx context.Context, user, template, summary string) (*mediawiki.EditResult, error) {
	name := mediawiki.NormalizeUser(user)
	title := "User:" + name
	if err := s.titles.Check(title); err != nil || name == "" {
		return nil, fmt.Errorf("%q: %w", user, ErrIllegalName)
	}
	if template == "" {
		template = "{{w:User:" + name + "}}"
	}
	if summary == "" {
		summary = DefaultCreatePageSummary
	}
	res, err := s.wiki.Edit(ctx, mediawiki.EditRequest{
		Title:      title,
		Mode:       mediawiki.EditText,
		Content:    template,
		Summary:    summary,
		Minor:      true,
		Bot:        true,
		CreateOnly: true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("created user page", zap.String("title", title), zap.Int64("revid", res.NewRevID))
	return res, nil
}

// BotEdit replaces the whole text of title with a bot-flagged minor edit.
// Timestamps from a fresh fetch make the edit fail on conflict instead of
// overwriting someone else's change.
func (s *Service) BotEdit(ctx context.Context, title, text, summary string) (*mediawiki.EditResult, error) {
	title = strings.TrimSpace(title)
	if err := s.titles.Check(title); err != nil {
		return nil, err
	}
	req := mediawiki.EditRequest{
		Title:   title,
		Mode:    mediawiki.EditText,
		Content: text,
		Summary: summary,
		Minor:   true,
		Bot:     true,
	}
	if req.Summary == "" {
		req.Summary = DefaultBotEditSummary
	}

	page, err := s.wiki.PageContent(ctx, title)
	switch {
	case errors.Is(err, mediawiki.ErrPageMissing):
		if page != nil {
			req.StartTimestamp = page.StartTimestamp
		}
	case err != nil:
		return nil, err
	default:
		req.StartTimestamp = page.StartTimestamp
		if page.Revision != nil {
			req.BaseTimestamp = page.Revision.Timestamp
		}
	}
	return s.wiki.Edit(ctx, req)
}

func (s *Service) user(ctx context.Context, name string) (*mediawiki.User, error) {
	name = mediawiki.NormalizeUser(name)
	if name == "" {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownUser)
	}
	users, err := s.wiki.Users(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0].Missing || users[0].Invalid {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownUser)
	}
	return &users[0], nil
}
