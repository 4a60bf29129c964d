// Package collector records group membership and messages for the
// leaderboard and the rank of each member.
package collector

import (
	"context"
	"log"
	"time"

	"miniapp/backend/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PointsPerMessage is stored with every message row.
const PointsPerMessage = 2

// UpdateSource is the long-polling side of *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Collector struct {
	DB      *gorm.DB
	GroupID int64
	logger  *log.Logger
	now     func() time.Time
}

func New(db *gorm.DB, groupID int64, logger *log.Logger) *Collector {
	return &Collector{DB: db, GroupID: groupID, logger: logger, now: time.Now}
}

// Run polls for updates until ctx is done. Updates are handled one at a time
// so message counts stay in order.
func (c *Collector) Run(ctx context.Context, source UpdateSource) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	cfg.AllowedUpdates = []string{"message", "chat_member"}

	updates := source.GetUpdatesChan(cfg)
	c.logger.Printf("collector: listening to group %d", c.GroupID)

	for {
		select {
		case <-ctx.Done():
			source.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := c.Handle(update); err != nil {
				c.logger.Printf("collector: update %d: %v", update.UpdateID, err)
			}
		}
	}
}

// Handle applies one update. Updates from other chats are ignored.
func (c *Collector) Handle(update tgbotapi.Update) error {
	switch {
	case update.ChatMember != nil:
		return c.memberChanged(update.ChatMember)
	case update.Message != nil:
		return c.message(update.Message)
	}
	return nil
}

func (c *Collector) memberChanged(change *tgbotapi.ChatMemberUpdated) error {
	if change.Chat.ID != c.GroupID || change.NewChatMember.User == nil {
		return nil
	}
	user := change.NewChatMember.User
	now := c.now().UTC()

	switch change.NewChatMember.Status {
	case "member", "administrator", "creator":
		c.logger.Printf("collector: user %d joined", user.ID)
		sub := models.Subscriber{
			TelegramID:       user.ID,
			Username:         optional(user.UserName),
			FirstName:        optional(user.FirstName),
			SubscriptionDate: now,
			IsActive:         true,
		}
		return c.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "telegram_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"is_active":           true,
				"unsubscription_date": nil,
			}),
		}).Create(&sub).Error

	case "left", "kicked":
		c.logger.Printf("collector: user %d left", user.ID)
		return c.DB.Model(&models.Subscriber{}).
			Where("telegram_id = ?", user.ID).
			Updates(map[string]interface{}{"is_active": false, "unsubscription_date": now}).Error
	}
	return nil
}

func (c *Collector) message(msg *tgbotapi.Message) error {
	// Anonymous admins and channels post without a sender.
	if msg.Chat == nil || msg.Chat.ID != c.GroupID || msg.From == nil {
		return nil
	}
	user := msg.From

	date := c.now().UTC()
	if msg.Date > 0 {
		date = time.Unix(int64(msg.Date), 0).UTC()
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Subscriber{}).
			Where("telegram_id = ?", user.ID).
			UpdateColumn("message_count", gorm.Expr("message_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}

		if err := tx.Create(&models.Message{
			UserID:      user.ID,
			MessageID:   msg.MessageID,
			MessageDate: date,
			Points:      PointsPerMessage,
		}).Error; err != nil {
			return err
		}

		if res.RowsAffected > 0 {
			return nil
		}
		// First message from someone the bot never saw join.
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Subscriber{
			TelegramID:       user.ID,
			Username:         optional(user.UserName),
			FirstName:        optional(user.FirstName),
			SubscriptionDate: date,
			MessageCount:     1,
			IsActive:         true,
		}).Error
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
