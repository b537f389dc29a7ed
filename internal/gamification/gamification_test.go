package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/models"
)

func testService() *Service {
	return New(&config.Config{
		BaseXPDailyQuest:   5,
		BaseXPRegularQuest: 10,
		BaseXPEpicQuest:    25,
		BaseXPBossQuest:    50,
	})
}

func TestQuestReward(t *testing.T) {
	svc := testService()

	tests := []struct {
		name      string
		questType models.QuestType
		rarity    models.QuestRarity
		priority  int
		want      int
	}{
		{"daily common lowest priority", models.QuestDaily, models.RarityCommon, 1, 5},
		{"regular common mid priority", models.QuestRegular, models.RarityCommon, 3, 14},
		{"epic rare high priority", models.QuestEpic, models.RarityRare, 5, 90},
		{"boss legendary max", models.QuestBoss, models.RarityLegendary, 5, 450},
		{"unknown type falls back to regular", models.QuestType("weekly"), models.RarityCommon, 1, 10},
		{"unknown rarity multiplies by one", models.QuestDaily, models.QuestRarity("mythic"), 1, 5},
		{"priority clamped low", models.QuestDaily, models.RarityCommon, -3, 5},
		{"priority clamped high", models.QuestDaily, models.RarityCommon, 99, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.QuestReward(tt.questType, tt.rarity, tt.priority))
		})
	}
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPForNextLevel(1))
	assert.Equal(t, 282, XPForNextLevel(2))
	assert.Equal(t, 1000, XPForNextLevel(10))

	// Invalid levels behave as level one.
	assert.Equal(t, 100, XPForNextLevel(0))
}

func TestApplyXP(t *testing.T) {
	t.Run("no level up below threshold", func(t *testing.T) {
		u := models.User{Experience: 0, Level: 1}
		leveled := ApplyXP(&u, 99)
		assert.False(t, leveled)
		assert.Equal(t, 99, u.Experience)
		assert.Equal(t, 1, u.Level)
	})

	t.Run("single level up", func(t *testing.T) {
		u := models.User{Experience: 90, Level: 1}
		leveled := ApplyXP(&u, 20)
		assert.True(t, leveled)
		assert.Equal(t, 110, u.Experience)
		assert.Equal(t, 2, u.Level)
	})

	t.Run("experience is cumulative across levels", func(t *testing.T) {
		u := models.User{Experience: 0, Level: 1}
		ApplyXP(&u, 500)
		// 500 >= 100 (level 1) and >= 282 (level 2), but < 519 (level 3).
		assert.Equal(t, 3, u.Level)
		assert.Equal(t, 500, u.Experience)
	})

	t.Run("zero level normalized", func(t *testing.T) {
		u := models.User{}
		ApplyXP(&u, 10)
		assert.Equal(t, 1, u.Level)
	})
}
