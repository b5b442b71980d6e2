// internal/service/user_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/mocks"
	"github.com/taskflowhq/taskflow/internal/model"
)

type userServiceFixture struct {
	svc         *UserService
	users       *mocks.MockUserRepositoryIface
	orgs        *mocks.MockOrganizationRepositoryIface
	memberships *mocks.MockMembershipRepositoryIface
	invitations *mocks.MockInvitationRepositoryIface
	hasher      *auth.PasswordHasher
}

func newUserServiceFixture(ctrl *gomock.Controller) *userServiceFixture {
	users := mocks.NewMockUserRepositoryIface(ctrl)
	orgs := mocks.NewMockOrganizationRepositoryIface(ctrl)
	memberships := mocks.NewMockMembershipRepositoryIface(ctrl)
	invitations := mocks.NewMockInvitationRepositoryIface(ctrl)
	hasher := auth.NewPasswordHasher()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	svc := NewUserService(users, orgs, memberships, invitations, hasher, tokens, nil, &config.Config{BaseURL: "http://localhost:3000"})
	return &userServiceFixture{
		svc:         svc,
		users:       users,
		orgs:        orgs,
		memberships: memberships,
		invitations: invitations,
		hasher:      hasher,
	}
}

func adminCtx(orgID uuid.UUID) *auth.Context {
	return &auth.Context{
		User:  model.UserRef{ID: uuid.New(), Name: "Admin"},
		OrgID: orgID,
		Role:  model.RoleAdmin,
	}
}

func TestSignup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)

	f.users.EXPECT().FindByEmail(gomock.Any(), "founder@acme.com").Return(nil, domain.ErrUserNotFound)
	f.orgs.EXPECT().SlugExists(gomock.Any(), "acme-inc").Return(false, nil)
	f.orgs.EXPECT().
		CreateWithOwner(gomock.Any(), gomock.Any(), gomock.Any(), model.RoleAdmin).
		DoAndReturn(func(_ context.Context, org *model.Organization, user *model.User, _ model.Role) error {
			assert.Equal(t, "acme-inc", org.Slug)
			assert.NotEqual(t, "supersecret", user.PasswordHash)
			org.ID = uuid.New()
			user.ID = uuid.New()
			return nil
		})

	out, err := f.svc.Signup(context.Background(), SignupInput{
		Email:            "founder@acme.com",
		Name:             "Founder",
		Password:         "supersecret",
		OrganizationName: "Acme Inc.",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "Acme Inc.", out.Organization.Name)
}

func TestSignupSlugCollision(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)

	f.users.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, domain.ErrUserNotFound)
	f.orgs.EXPECT().SlugExists(gomock.Any(), "acme").Return(true, nil)
	f.orgs.EXPECT().
		CreateWithOwner(gomock.Any(), gomock.Any(), gomock.Any(), model.RoleAdmin).
		DoAndReturn(func(_ context.Context, org *model.Organization, user *model.User, _ model.Role) error {
			assert.Regexp(t, `^acme-[0-9a-f]{5}$`, org.Slug)
			user.ID = uuid.New()
			return nil
		})

	_, err := f.svc.Signup(context.Background(), SignupInput{
		Email:            "founder@acme.com",
		Name:             "Founder",
		Password:         "supersecret",
		OrganizationName: "Acme",
	})
	assert.NoError(t, err)
}

func TestSignupEmailTaken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)
	f.users.EXPECT().FindByEmail(gomock.Any(), "taken@acme.com").Return(&model.User{}, nil)

	_, err := f.svc.Signup(context.Background(), SignupInput{
		Email:            "taken@acme.com",
		Name:             "Founder",
		Password:         "supersecret",
		OrganizationName: "Acme",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)
	_, err := f.svc.Signup(context.Background(), SignupInput{
		Email:            "founder@acme.com",
		Name:             "Founder",
		Password:         "short",
		OrganizationName: "Acme",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Inc.":        "acme-inc",
		"  Spaced   Out  ": "spaced-out",
		"Über & Co":        "ber-co",
		"already-sluggy":   "already-sluggy",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)

	hash, err := f.hasher.Hash("correct-password")
	assert.NoError(t, err)
	known := &model.User{ID: uuid.New(), Email: "user@acme.com", PasswordHash: hash}

	f.users.EXPECT().FindByEmail(gomock.Any(), "nobody@acme.com").Return(nil, domain.ErrUserNotFound)
	_, unknownErr := f.svc.Login(context.Background(), LoginInput{Email: "nobody@acme.com", Password: "whatever"})

	f.users.EXPECT().FindByEmail(gomock.Any(), "user@acme.com").Return(known, nil)
	_, wrongErr := f.svc.Login(context.Background(), LoginInput{Email: "user@acme.com", Password: "wrong-password"})

	assert.ErrorIs(t, unknownErr, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, domain.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)

	hash, err := f.hasher.Hash("correct-password")
	assert.NoError(t, err)
	f.users.EXPECT().FindByEmail(gomock.Any(), "user@acme.com").
		Return(&model.User{ID: uuid.New(), Email: "user@acme.com", PasswordHash: hash}, nil)

	out, err := f.svc.Login(context.Background(), LoginInput{Email: "user@acme.com", Password: "correct-password"})
	assert.NoError(t, err)
	assert.NotEmpty(t, out.Token)
}

func TestInvite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)
	orgID := uuid.New()
	ac := adminCtx(orgID)

	f.users.EXPECT().FindByEmail(gomock.Any(), "new@acme.com").Return(nil, domain.ErrUserNotFound)
	f.invitations.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inv *model.Invitation) error {
			assert.Equal(t, orgID, inv.OrgID)
			assert.Len(t, inv.Token, 64)
			assert.WithinDuration(t, time.Now().Add(invitationTTL), inv.ExpiresAt, time.Minute)
			return nil
		})
	f.orgs.EXPECT().FindByID(gomock.Any(), orgID).Return(&model.Organization{ID: orgID, Name: "Acme"}, nil)

	inv, err := f.svc.Invite(context.Background(), ac, InviteInput{Email: "new@acme.com", Role: model.RoleMember})
	assert.NoError(t, err)
	assert.Equal(t, model.RoleMember, inv.Role)
}

func TestInviteExistingMember(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)
	orgID := uuid.New()
	existing := &model.User{ID: uuid.New(), Email: "member@acme.com"}

	f.users.EXPECT().FindByEmail(gomock.Any(), "member@acme.com").Return(existing, nil)
	f.memberships.EXPECT().FindActiveByUserAndOrg(gomock.Any(), existing.ID, orgID).
		Return(&model.Membership{}, nil)

	_, err := f.svc.Invite(context.Background(), adminCtx(orgID), InviteInput{Email: "member@acme.com", Role: model.RoleManager})
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
}

func TestAcceptInviteNewUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)
	orgID := uuid.New()
	inv := &model.Invitation{
		ID:        uuid.New(),
		OrgID:     orgID,
		Email:     "new@acme.com",
		Role:      model.RoleMember,
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	f.invitations.EXPECT().FindByToken(gomock.Any(), "tok").Return(inv, nil)
	f.users.EXPECT().FindByEmail(gomock.Any(), "new@acme.com").Return(nil, domain.ErrUserNotFound)
	f.users.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, user *model.User) error {
			user.ID = uuid.New()
			return nil
		})
	f.memberships.EXPECT().FindActiveByUserAndOrg(gomock.Any(), gomock.Any(), orgID).
		Return(nil, domain.ErrNoMembership)
	f.memberships.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.invitations.EXPECT().MarkAccepted(gomock.Any(), inv).Return(nil)

	membership, err := f.svc.AcceptInvite(context.Background(), AcceptInviteInput{
		Token:    "tok",
		Name:     "New Person",
		Password: "longenough",
	})
	assert.NoError(t, err)
	assert.Equal(t, orgID, membership.OrgID)
	assert.Equal(t, model.RoleMember, membership.Role)
}

func TestAcceptInviteExpired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)
	f.invitations.EXPECT().FindByToken(gomock.Any(), "tok").Return(&model.Invitation{
		Email:     "late@acme.com",
		ExpiresAt: time.Now().Add(-time.Hour),
	}, nil)

	_, err := f.svc.AcceptInvite(context.Background(), AcceptInviteInput{Token: "tok"})
	assert.ErrorIs(t, err, domain.ErrInvitationExpired)
}

func TestAcceptInviteAlreadyAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)
	accepted := time.Now().Add(-time.Minute)
	f.invitations.EXPECT().FindByToken(gomock.Any(), "tok").Return(&model.Invitation{
		AcceptedAt: &accepted,
		ExpiresAt:  time.Now().Add(time.Hour),
	}, nil)

	_, err := f.svc.AcceptInvite(context.Background(), AcceptInviteInput{Token: "tok"})
	assert.ErrorIs(t, err, domain.ErrInvitationNotFound)
}

func TestAcceptInviteExistingUserAlreadyMember(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newUserServiceFixture(ctrl)
	orgID := uuid.New()
	existing := &model.User{ID: uuid.New(), Email: "member@acme.com"}

	f.invitations.EXPECT().FindByToken(gomock.Any(), "tok").Return(&model.Invitation{
		OrgID:     orgID,
		Email:     "member@acme.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	f.users.EXPECT().FindByEmail(gomock.Any(), "member@acme.com").Return(existing, nil)
	f.memberships.EXPECT().FindActiveByUserAndOrg(gomock.Any(), existing.ID, orgID).
		Return(&model.Membership{}, nil)

	_, err := f.svc.AcceptInvite(context.Background(), AcceptInviteInput{Token: "tok"})
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
}
