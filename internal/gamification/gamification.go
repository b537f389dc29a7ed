// Package gamification computes XP rewards and level progression.
package gamification

import (
	"math"

	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/models"
)

// XP awarded for creating a note of any kind.
const NoteCreationXP = 2

var rarityMultipliers = map[models.QuestRarity]float64{
	models.RarityCommon:    1,
	models.RarityUncommon:  1.5,
	models.RarityRare:      2,
	models.RarityEpic:      3,
	models.RarityLegendary: 5,
}

// Service holds the configurable XP bases.
type Service struct {
	baseXP map[models.QuestType]int
}

func New(cfg *config.Config) *Service {
	return &Service{
		baseXP: map[models.QuestType]int{
			models.QuestDaily:   cfg.BaseXPDailyQuest,
			models.QuestRegular: cfg.BaseXPRegularQuest,
			models.QuestEpic:    cfg.BaseXPEpicQuest,
			models.QuestBoss:    cfg.BaseXPBossQuest,
		},
	}
}

// QuestReward computes the XP for completing a quest:
// base XP by type, times the rarity multiplier, times a priority
// multiplier of 0.8 + 0.2 * priority (priority 1-5 gives 1.0-1.8).
func (s *Service) QuestReward(questType models.QuestType, rarity models.QuestRarity, priority int) int {
	base, ok := s.baseXP[questType]
	if !ok {
		base = s.baseXP[models.QuestRegular]
	}

	mult, ok := rarityMultipliers[rarity]
	if !ok {
		mult = 1
	}

	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}
	priorityMult := 0.8 + float64(priority)*0.2

	return int(float64(base) * mult * priorityMult)
}

// XPForNextLevel is the cumulative XP needed to leave the given level:
// 100 * level^1.5.
func XPForNextLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(100 * math.Pow(float64(level), 1.5))
}

// ApplyXP adds xp to the user's experience and applies any level-ups.
// Experience accumulates across levels; it is never reset.
func ApplyXP(u *models.User, xp int) (leveledUp bool) {
	if u.Level < 1 {
		u.Level = 1
	}
	u.Experience += xp

	for u.Experience >= XPForNextLevel(u.Level) {
		u.Level++
		leveledUp = true
	}

	return leveledUp
}
