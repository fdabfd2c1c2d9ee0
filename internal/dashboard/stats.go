package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"chat-backend/internal/database"
	"chat-backend/pkg/api"

	"gorm.io/gorm"
)

// Storage is estimated, not measured: a flat per-row cost for conversation
// metadata and message text.
const (
	conversationStorageMB = 0.1
	messageStorageMB      = 0.01

	topConversationCount = 10
	DefaultStorageLimit  = 50
)

var ErrInvalidPeriod = errors.New("invalid period, expected one of 7d, 30d, 90d")

var periodDays = map[string]int{"7d": 7, "30d": 30, "90d": 90}

// Stats computes the dashboard aggregates over the local store. Everything is
// derived on demand, nothing is precomputed or cached.
type Stats struct {
	db *gorm.DB
}

func NewStats(db *gorm.DB) *Stats {
	return &Stats{db: db}
}

func (s *Stats) Overview(ctx context.Context) (api.DashboardOverview, error) {
	var overview api.DashboardOverview

	db := s.db.WithContext(ctx)

	if err := db.Model(&database.Conversation{}).Count(&overview.TotalConversations).Error; err != nil {
		return overview, fmt.Errorf("error counting conversations: %w", err)
	}
	if err := db.Model(&database.Message{}).Count(&overview.TotalMessages).Error; err != nil {
		return overview, fmt.Errorf("error counting messages: %w", err)
	}

	breakdown, err := s.ContentTypes(ctx)
	if err != nil {
		return overview, err
	}
	overview.ContentTypeBreakdown = breakdown
	for _, entry := range breakdown {
		switch entry.ContentType {
		case database.RoleUser:
			overview.UserMessages = entry.Count
		case database.RoleAssistant:
			overview.AssistantMessages = entry.Count
		}
	}

	now := time.Now().UTC()
	for _, window := range []struct {
		days int
		dest *int64
	}{{7, &overview.Messages7d}, {30, &overview.Messages30d}} {
		since := now.AddDate(0, 0, -window.days)
		if err := db.Model(&database.Message{}).Where("timestamp >= ?", since).Count(window.dest).Error; err != nil {
			return overview, fmt.Errorf("error counting recent messages: %w", err)
		}
	}

	overview.TotalStorageMB = roundMB(float64(overview.TotalConversations)*conversationStorageMB +
		float64(overview.TotalMessages)*messageStorageMB)

	top, err := s.ConversationStorage(ctx, topConversationCount)
	if err != nil {
		return overview, err
	}
	overview.TopConversationsByStorage = top

	return overview, nil
}

// ConversationStorage returns per-conversation storage estimates, largest
// first, capped at limit.
func (s *Stats) ConversationStorage(ctx context.Context, limit int) ([]api.ConversationStorageStats, error) {
	if limit <= 0 {
		limit = DefaultStorageLimit
	}

	db := s.db.WithContext(ctx)

	conversations, err := database.ListConversations(db)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}

	type countRow struct {
		ConversationID string
		Count          int64
	}
	var counts []countRow
	if err := db.Model(&database.Message{}).
		Select("conversation_id, count(*) as count").
		Group("conversation_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("error counting messages per conversation: %w", err)
	}

	countByID := make(map[string]int64, len(counts))
	for _, row := range counts {
		countByID[row.ConversationID] = row.Count
	}

	stats := make([]api.ConversationStorageStats, 0, len(conversations))
	for _, conversation := range conversations {
		messageCount := countByID[conversation.ID.String()]
		stats = append(stats, api.ConversationStorageStats{
			ConversationID: conversation.ID,
			Title:          conversation.Title,
			MessageCount:   messageCount,
			StorageMB:      roundMB(conversationStorageMB + float64(messageCount)*messageStorageMB),
			LastActivity:   conversation.UpdatedAt,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].StorageMB > stats[j].StorageMB })

	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

// ContentTypes breaks message counts down by role, with percentages of the
// total rounded to two decimals.
func (s *Stats) ContentTypes(ctx context.Context) ([]api.ContentTypeStats, error) {
	db := s.db.WithContext(ctx)

	type roleRow struct {
		Role  string
		Count int64
	}
	var rows []roleRow
	if err := db.Model(&database.Message{}).
		Select("role, count(*) as count").
		Group("role").
		Order("role").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error counting messages by role: %w", err)
	}

	var total int64
	for _, row := range rows {
		total += row.Count
	}

	stats := make([]api.ContentTypeStats, 0, len(rows))
	for _, row := range rows {
		percentage := 0.0
		if total > 0 {
			percentage = math.Round(float64(row.Count)/float64(total)*100*100) / 100
		}
		stats = append(stats, api.ContentTypeStats{
			ContentType: row.Role,
			Count:       row.Count,
			Percentage:  percentage,
		})
	}
	return stats, nil
}

// TimeSeries buckets conversation and message creation per day over the
// requested period. Bucketing happens here rather than in SQL so the same
// code serves SQLite and Postgres.
func (s *Stats) TimeSeries(ctx context.Context, period string) ([]api.TimeRangeStats, error) {
	days, ok := periodDays[period]
	if !ok {
		return nil, ErrInvalidPeriod
	}

	db := s.db.WithContext(ctx)

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	var messageTimes []time.Time
	if err := db.Model(&database.Message{}).
		Where("timestamp >= ?", start).
		Pluck("timestamp", &messageTimes).Error; err != nil {
		return nil, fmt.Errorf("error loading message timestamps: %w", err)
	}

	var conversationTimes []time.Time
	if err := db.Model(&database.Conversation{}).
		Where("creation_time >= ?", start).
		Pluck("creation_time", &conversationTimes).Error; err != nil {
		return nil, fmt.Errorf("error loading conversation timestamps: %w", err)
	}

	buckets := make([]api.TimeRangeStats, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = api.TimeRangeStats{Date: date}
		index[date] = i
	}

	for _, ts := range messageTimes {
		if i, ok := index[ts.UTC().Format("2006-01-02")]; ok {
			buckets[i].Messages++
		}
	}
	for _, ts := range conversationTimes {
		if i, ok := index[ts.UTC().Format("2006-01-02")]; ok {
			buckets[i].Conversations++
		}
	}

	return buckets, nil
}

func roundMB(mb float64) float64 {
	return math.Round(mb*100) / 100
}
