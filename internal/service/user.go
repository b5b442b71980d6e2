// internal/service/user.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/email"
	"github.com/taskflowhq/taskflow/internal/email/mailer"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/repository"
)

const invitationTTL = 7 * 24 * time.Hour

type UserService struct {
	repo           repository.UserRepositoryIface
	orgRepo        repository.OrganizationRepositoryIface
	membershipRepo repository.MembershipRepositoryIface
	invitationRepo repository.InvitationRepositoryIface
	passwordHasher *auth.PasswordHasher
	tokenManager   *auth.TokenManager
	emailService   *email.Service
	config         *config.Config
	validate       *validator.Validate
}

func NewUserService(
	repo repository.UserRepositoryIface,
	orgRepo repository.OrganizationRepositoryIface,
	membershipRepo repository.MembershipRepositoryIface,
	invitationRepo repository.InvitationRepositoryIface,
	passwordHasher *auth.PasswordHasher,
	tokenManager *auth.TokenManager,
	emailService *email.Service,
	config *config.Config,
) *UserService {
	return &UserService{
		repo:           repo,
		orgRepo:        orgRepo,
		membershipRepo: membershipRepo,
		invitationRepo: invitationRepo,
		passwordHasher: passwordHasher,
		tokenManager:   tokenManager,
		emailService:   emailService,
		config:         config,
		validate:       validator.New(),
	}
}

type SignupInput struct {
	Email            string `json:"email" validate:"required,email"`
	Name             string `json:"name" validate:"required"`
	Password         string `json:"password" validate:"required,min=8"`
	OrganizationName string `json:"organization_name" validate:"required"`
}

type SignupOutput struct {
	User         *model.User         `json:"user"`
	Organization *model.Organization `json:"organization"`
	Token        string              `json:"token"`
}

// Signup creates the user, their organization and the ADMIN membership in a
// single transaction. The first user of an org is always its ADMIN.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (*SignupOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrEmailAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	slug, err := s.uniqueSlug(ctx, input.OrganizationName)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
	}
	org := &model.Organization{
		Name: input.OrganizationName,
		Slug: slug,
	}

	if err := s.orgRepo.CreateWithOwner(ctx, org, user, model.RoleAdmin); err != nil {
		return nil, err
	}

	token, err := s.tokenManager.Generate(user.ID.String(), user.Email)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &SignupOutput{User: user, Organization: org, Token: token}, nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginOutput struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	verified, err := s.passwordHasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !verified {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokenManager.Generate(user.ID.String(), user.Email)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &LoginOutput{User: user, Token: token}, nil
}

type InviteInput struct {
	Email string     `json:"email" validate:"required,email"`
	Role  model.Role `json:"role" validate:"required"`
}

// Invite creates an invitation for the caller's org and emails the invite
// link. Only ADMINs may invite; the caller enforces that via the permission
// checker before reaching here.
func (s *UserService) Invite(ctx context.Context, ac *auth.Context, input InviteInput) (*model.Invitation, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, input.Role)
	}

	if user, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		if _, err := s.membershipRepo.FindActiveByUserAndOrg(ctx, user.ID, ac.OrgID); err == nil {
			return nil, domain.ErrAlreadyMember
		} else if !errors.Is(err, domain.ErrNoMembership) {
			return nil, err
		}
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	token, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating invitation token: %w", err)
	}

	inv := &model.Invitation{
		OrgID:     ac.OrgID,
		Email:     input.Email,
		Role:      input.Role,
		Token:     token,
		InvitedBy: ac.User.ID,
		ExpiresAt: time.Now().Add(invitationTTL),
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	org, err := s.orgRepo.FindByID(ctx, ac.OrgID)
	if err != nil {
		return nil, err
	}

	if s.emailService != nil {
		acceptLink := fmt.Sprintf("%s/invitations/%s/accept", s.config.BaseURL, token)
		if err := mailer.SendInvitationEmail(s.emailService, input.Email, ac.User.Name, org.Name, string(input.Role), acceptLink); err != nil {
			// The invitation row exists and the link can be re-sent; a mail
			// outage must not fail the invite.
			slog.ErrorContext(ctx, "failed to send invitation email",
				slog.String("org_id", ac.OrgID.String()), slog.Any("error", err))
		}
	}

	return inv, nil
}

type AcceptInviteInput struct {
	Token    string `json:"token" validate:"required"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AcceptInvite redeems an invitation token. Existing users gain a membership;
// new users are created first using the supplied name and password.
func (s *UserService) AcceptInvite(ctx context.Context, input AcceptInviteInput) (*model.Membership, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	inv, err := s.invitationRepo.FindByToken(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	if inv.AcceptedAt != nil {
		return nil, domain.ErrInvitationNotFound
	}
	if inv.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrInvitationExpired
	}

	user, err := s.repo.FindByEmail(ctx, inv.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		if input.Name == "" || len(input.Password) < 8 {
			return nil, fmt.Errorf("%w: name and a password of at least 8 characters are required", domain.ErrInvalidInput)
		}
		hash, err := s.passwordHasher.Hash(input.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		user = &model.User{Name: input.Name, Email: inv.Email, PasswordHash: hash}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if _, err := s.membershipRepo.FindActiveByUserAndOrg(ctx, user.ID, inv.OrgID); err == nil {
		return nil, domain.ErrAlreadyMember
	} else if !errors.Is(err, domain.ErrNoMembership) {
		return nil, err
	}

	membership := &model.Membership{
		OrgID:  inv.OrgID,
		UserID: user.ID,
		Role:   inv.Role,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}
	if err := s.invitationRepo.MarkAccepted(ctx, inv); err != nil {
		return nil, err
	}

	return membership, nil
}

var slugStripper = regexp.MustCompile(`[^a-z0-9\s-]`)
var slugSpaces = regexp.MustCompile(`[\s-]+`)

// slugify lowercases the name, strips anything that is not alphanumeric,
// space or hyphen, and collapses runs of spaces and hyphens into one hyphen.
func slugify(name string) string {
	s := strings.ToLower(name)
	s = slugStripper.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(strings.TrimSpace(s), "-")
	return s
}

// uniqueSlug derives the org slug from its name, appending a short random
// suffix when the base slug is taken.
func (s *UserService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slugify(name)
	if base == "" {
		base = "org"
	}

	taken, err := s.orgRepo.SlugExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	suffix, err := randomToken(3)
	if err != nil {
		return "", fmt.Errorf("generating slug suffix: %w", err)
	}
	return base + "-" + suffix[:5], nil
}

// randomToken returns n random bytes hex-encoded.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
