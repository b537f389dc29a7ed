package models

import "time"

// QuestType sets the base XP for completion.
type QuestType string

const (
	QuestDaily   QuestType = "daily"
	QuestRegular QuestType = "regular"
	QuestEpic    QuestType = "epic"
	QuestBoss    QuestType = "boss"
)

// ParseQuestType maps a request value onto a known type, falling back
// to regular.
func ParseQuestType(s string) QuestType {
	switch t := QuestType(s); t {
	case QuestDaily, QuestRegular, QuestEpic, QuestBoss:
		return t
	default:
		return QuestRegular
	}
}

// QuestRarity multiplies the base XP.
type QuestRarity string

const (
	RarityCommon    QuestRarity = "common"
	RarityUncommon  QuestRarity = "uncommon"
	RarityRare      QuestRarity = "rare"
	RarityEpic      QuestRarity = "epic"
	RarityLegendary QuestRarity = "legendary"
)

// ParseQuestRarity maps a request value onto a known rarity, falling
// back to common.
func ParseQuestRarity(s string) QuestRarity {
	switch r := QuestRarity(s); r {
	case RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary:
		return r
	default:
		return RarityCommon
	}
}

type Quest struct {
	ID          int         `json:"id"`
	OwnerID     int         `json:"owner_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        QuestType   `json:"quest_type"`
	Rarity      QuestRarity `json:"rarity"`
	Priority    int         `json:"priority"` // 1-5
	ExpReward   int         `json:"exp_reward"`
	IsCompleted bool        `json:"is_completed"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
