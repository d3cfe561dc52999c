package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voiceweave/voiceweave/backend/internal/utils"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
	"github.com/voiceweave/voiceweave/shared/logger"
)

// MaxJoinCodeAttempts bounds join code generation when codes collide.
const MaxJoinCodeAttempts = 5

type CommunityService interface {
	Create(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error)
	JoinByCode(ctx context.Context, code string, user domain.User) (domain.Community, error)
	Get(ctx context.Context, id domain.CommunityId) (domain.Community, error)
	ListForUser(ctx context.Context, userId domain.UserId) ([]domain.Community, error)
}

type Community struct {
	storage   CommunityStorage
	validator CommunityValidator
	ids       IDGenerator
	codes     JoinCodeGenerator
	now       func() time.Time
}

type CommunityStorage interface {
	// CreateCommunity fails with a CodeJoinCodeTaken conflict when the join code is in use.
	CreateCommunity(ctx context.Context, community domain.Community) error
	GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error)
	GetCommunityByJoinCode(ctx context.Context, code domain.JoinCode) (domain.Community, error)
	// AddMember appends the user (and their email, if any) in one atomic step.
	// Fails with a CodeAlreadyMember conflict when the user is already a member.
	AddMember(ctx context.Context, id domain.CommunityId, user domain.User) (domain.Community, error)
	CommunitiesForUser(ctx context.Context, userId domain.UserId) ([]domain.Community, error)
}

type CommunityValidator interface {
	Title(title string) error
	Description(description string) error
}

type IDGenerator interface {
	NewID() string
}

type JoinCodeGenerator interface {
	NewJoinCode() (string, error)
}

func NewCommunity(storage CommunityStorage, validator CommunityValidator, ids IDGenerator, codes JoinCodeGenerator) *Community {
	return &Community{storage: storage, validator: validator, ids: ids, codes: codes, now: time.Now}
}

func (c *Community) Create(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error) {
	if err := c.validator.Title(data.Title); err != nil {
		return domain.Community{}, err
	}
	if err := c.validator.Description(data.Description); err != nil {
		return domain.Community{}, err
	}

	community := domain.Community{
		Id:              c.ids.NewID(),
		Title:           strings.TrimSpace(data.Title),
		Description:     strings.TrimSpace(data.Description),
		Members:         []domain.UserId{data.Creator.Id},
		Admins:          []domain.UserId{data.Creator.Id},
		AuthorityEmails: []domain.Email{},
		CreatedBy:       data.Creator.Id,
		CreatedAt:       c.now().UTC(),
	}
	if data.Creator.Email != "" {
		community.AuthorityEmails = append(community.AuthorityEmails, data.Creator.Email)
	}

	for attempt := 1; attempt <= MaxJoinCodeAttempts; attempt++ {
		code, err := c.codes.NewJoinCode()
		if err != nil {
			return domain.Community{}, fmt.Errorf("failed to generate join code: %w", err)
		}
		community.JoinCode = code

		err = c.storage.CreateCommunity(ctx, community)
		if err == nil {
			return community, nil
		}
		if !errors.HasCode(err, errors.CodeJoinCodeTaken) {
			return domain.Community{}, err
		}
		logger.Log.Warn("join code collision",
			"component", "community",
			"attempt", attempt)
	}

	return domain.Community{}, errors.Conflict(errors.CodeCodeGenerationExhausted,
		fmt.Sprintf("Could not generate a unique join code after %d attempts", MaxJoinCodeAttempts))
}

func (c *Community) JoinByCode(ctx context.Context, code string, user domain.User) (domain.Community, error) {
	community, err := c.storage.GetCommunityByJoinCode(ctx, utils.NormalizeJoinCode(code))
	if err != nil {
		return domain.Community{}, err
	}
	if community.IsMember(user.Id) {
		return domain.Community{}, errors.Conflict(errors.CodeAlreadyMember, "You are already a member of this community")
	}
	return c.storage.AddMember(ctx, community.Id, user)
}

func (c *Community) Get(ctx context.Context, id domain.CommunityId) (domain.Community, error) {
	return c.storage.GetCommunity(ctx, id)
}

func (c *Community) ListForUser(ctx context.Context, userId domain.UserId) ([]domain.Community, error) {
	return c.storage.CommunitiesForUser(ctx, userId)
}
