package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
)

const (
	MaxCommunityTitle       = 100
	MaxCommunityDescription = 500
	MaxQuestionLength       = 140
	MinPollOptions          = 2
	MaxPollOptions          = 6
	MaxOptionLength         = 100
	MaxCommentLength        = 500
)

type CommunityValidator struct{}

func (v *CommunityValidator) Title(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n == 0 {
		return errors.Validation("Title is required")
	}
	if n > MaxCommunityTitle {
		return errors.Validation("Title is too long")
	}
	return nil
}

func (v *CommunityValidator) Description(description string) error {
	if utf8.RuneCountInString(description) > MaxCommunityDescription {
		return errors.Validation("Description is too long")
	}
	return nil
}

type PollValidator struct{}

func (v *PollValidator) Question(question string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(question))
	if n == 0 {
		return errors.Validation("Question is required")
	}
	if n > MaxQuestionLength {
		return errors.Validation(fmt.Sprintf("Question must be at most %d characters", MaxQuestionLength))
	}
	return nil
}

// Options returns the option list a poll of the given type is created with.
// Petitions always get [yes, no]; multiple choice options are trimmed and blanks dropped.
func (v *PollValidator) Options(pollType domain.PollType, options []domain.PollOption) ([]domain.PollOption, error) {
	switch pollType {
	case domain.PollTypePetition:
		return []domain.PollOption{domain.PetitionYes, domain.PetitionNo}, nil
	case domain.PollTypeMultipleChoice:
	default:
		return nil, errors.Validation(fmt.Sprintf("Unknown poll type %q", pollType))
	}

	cleaned := make([]domain.PollOption, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if utf8.RuneCountInString(option) > MaxOptionLength {
			return nil, errors.Validation(fmt.Sprintf("Options must be at most %d characters", MaxOptionLength))
		}
		key := strings.ToLower(option)
		if _, dup := seen[key]; dup {
			return nil, errors.Validation(fmt.Sprintf("Duplicate option %q", option))
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, option)
	}

	if len(cleaned) < MinPollOptions || len(cleaned) > MaxPollOptions {
		return nil, errors.Validation(fmt.Sprintf("Multiple choice polls need %d to %d options", MinPollOptions, MaxPollOptions))
	}
	return cleaned, nil
}

func (v *PollValidator) VoteGoal(goal int) error {
	if goal < 1 {
		return errors.Validation("Vote goal must be at least 1")
	}
	return nil
}

type CommentValidator struct{}

func (v *CommentValidator) Text(text string) error {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return errors.Validation("Comment is empty")
	}
	if n > MaxCommentLength {
		return errors.Validation(fmt.Sprintf("Comment must be at most %d characters", MaxCommentLength))
	}
	return nil
}
