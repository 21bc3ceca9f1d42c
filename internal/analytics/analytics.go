package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"chat-widget/internal/storage"
)

// DailyStats aggregates the exchanges of one calendar day.
type DailyStats struct {
	Date            string               `json:"date"`
	TotalExchanges  int                  `json:"total_exchanges"`
	UniqueChats     int                  `json:"unique_chats"`
	FailedExchanges int                  `json:"failed_exchanges"`
	ChatStats       map[string]ChatStats `json:"chat_stats"`
}

type ChatStats struct {
	ChatID    string `json:"chat_id"`
	Exchanges int    `json:"exchanges"`
	Failed    int    `json:"failed"`
}

// AnalyzeDailyLogs counts the events that fall on targetDate's day in
// targetDate's location. Events without a user message are ignored.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:      startOfDay.Format("2006-01-02"),
		ChatStats: make(map[string]ChatStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.UserMessage == "" {
			continue
		}

		stats.TotalExchanges++
		cs, ok := stats.ChatStats[event.ChatID]
		if !ok {
			cs = ChatStats{ChatID: event.ChatID}
		}
		cs.Exchanges++
		if failed(event) {
			stats.FailedExchanges++
			cs.Failed++
		}
		stats.ChatStats[event.ChatID] = cs
	}

	stats.UniqueChats = len(stats.ChatStats)
	return stats
}

func failed(e storage.Event) bool { return e.IsError || !e.Success }

// Summary renders a short plain-text report, chats sorted by activity.
func (ds *DailyStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat activity for %s:\n", ds.Date)
	fmt.Fprintf(&b, "- Exchanges: %d\n", ds.TotalExchanges)
	fmt.Fprintf(&b, "- Unique chats: %d\n", ds.UniqueChats)
	fmt.Fprintf(&b, "- Failed exchanges: %d\n", ds.FailedExchanges)

	if len(ds.ChatStats) == 0 {
		return b.String()
	}

	chats := make([]ChatStats, 0, len(ds.ChatStats))
	for _, cs := range ds.ChatStats {
		chats = append(chats, cs)
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].Exchanges != chats[j].Exchanges {
			return chats[i].Exchanges > chats[j].Exchanges
		}
		return chats[i].ChatID < chats[j].ChatID
	})

	b.WriteString("\nPer chat:\n")
	for _, cs := range chats {
		fmt.Fprintf(&b, "- %s: %d exchanges", cs.ChatID, cs.Exchanges)
		if cs.Failed > 0 {
			fmt.Fprintf(&b, ", %d failed", cs.Failed)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
