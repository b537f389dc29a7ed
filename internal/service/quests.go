package service

import (
	"context"
	"time"

	"github.com/questlogger/questlogger/internal/gamification"
	"github.com/questlogger/questlogger/internal/logger"
	"github.com/questlogger/questlogger/internal/models"
	"github.com/questlogger/questlogger/internal/store"
)

// QuestService manages quests and pays out their experience rewards.
type QuestService struct {
	quests *store.QuestRepository
	users  *store.UserRepository
	game   *gamification.Service
	log    *logger.Logger
}

func NewQuestService(quests *store.QuestRepository, users *store.UserRepository, game *gamification.Service, log *logger.Logger) *QuestService {
	return &QuestService{quests: quests, users: users, game: game, log: log}
}

// CreateQuestInput is the POST /quests payload.
type CreateQuestInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	QuestType   string `json:"quest_type"`
	Rarity      string `json:"rarity"`
	Priority    int    `json:"priority"`
}

func (s *QuestService) Create(ctx context.Context, userID int, in CreateQuestInput) (models.Quest, error) {
	quest := models.Quest{
		OwnerID:     userID,
		Title:       in.Title,
		Description: in.Description,
		Type:        models.ParseQuestType(in.QuestType),
		Rarity:      models.ParseQuestRarity(in.Rarity),
		Priority:    in.Priority,
	}
	if quest.Priority < 1 {
		quest.Priority = 1
	}
	if quest.Priority > 5 {
		quest.Priority = 5
	}

	quest.ExpReward = s.game.QuestReward(quest.Type, quest.Rarity, quest.Priority)

	if err := s.quests.Create(ctx, &quest); err != nil {
		return models.Quest{}, err
	}

	now := time.Now()
	quest.CreatedAt = now
	quest.UpdatedAt = now

	return quest, nil
}

func (s *QuestService) Get(ctx context.Context, userID, questID int) (models.Quest, error) {
	return s.quests.Get(ctx, userID, questID)
}

func (s *QuestService) List(ctx context.Context, userID int) ([]models.Quest, error) {
	return s.quests.List(ctx, userID)
}

// CompletionResult reports the payout of a completed quest.
type CompletionResult struct {
	Quest            models.Quest `json:"quest"`
	ExperienceGained int          `json:"experience_gained"`
	TotalExperience  int          `json:"total_experience"`
	Level            int          `json:"level"`
	LeveledUp        bool         `json:"leveled_up"`
}

// Complete marks a quest done and credits its reward. Completing an
// already-completed quest returns ErrNotFound, so rewards pay out once.
func (s *QuestService) Complete(ctx context.Context, userID, questID int) (CompletionResult, error) {
	quest, err := s.quests.Get(ctx, userID, questID)
	if err != nil {
		return CompletionResult{}, err
	}

	completedAt := time.Now()
	if err := s.quests.Complete(ctx, userID, questID, completedAt); err != nil {
		return CompletionResult{}, err
	}
	quest.IsCompleted = true
	quest.CompletedAt = &completedAt

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return CompletionResult{}, err
	}

	leveledUp := gamification.ApplyXP(&user, quest.ExpReward)
	if err := s.users.SaveProgress(ctx, userID, user.Experience, user.Level); err != nil {
		return CompletionResult{}, err
	}

	s.log.Info().
		Int("user_id", userID).
		Int("quest_id", questID).
		Int("experience_gained", quest.ExpReward).
		Bool("leveled_up", leveledUp).
		Msg("quest completed")

	return CompletionResult{
		Quest:            quest,
		ExperienceGained: quest.ExpReward,
		TotalExperience:  user.Experience,
		Level:            user.Level,
		LeveledUp:        leveledUp,
	}, nil
}

func (s *QuestService) Delete(ctx context.Context, userID, questID int) error {
	return s.quests.Delete(ctx, userID, questID)
}
