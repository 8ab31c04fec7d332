package model

import (
	"strings"
	"time"
)

// PlayRecord 归档的播放记录
type PlayRecord struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TrackID   string    `json:"trackId" gorm:"size:64;not null;uniqueIndex:idx_track_played"`
	PlayedAt  time.Time `json:"playedAt" gorm:"not null;uniqueIndex:idx_track_played;index"`
	Title     string    `json:"title" gorm:"size:255"`
	Artists   string    `json:"artists" gorm:"size:512"`
	Album     string    `json:"album" gorm:"size:255"`
	TrackURL  string    `json:"trackUrl" gorm:"size:255"`
	CoverURL  string    `json:"coverUrl" gorm:"size:512"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定表名
func (PlayRecord) TableName() string {
	return "play_records"
}

// NewPlayRecord flattens a recently played item into an archive row.
func NewPlayRecord(item RecentItem) PlayRecord {
	names := make([]string, 0, len(item.Track.Artists))
	for _, a := range item.Track.Artists {
		names = append(names, a.Name)
	}
	var cover string
	if len(item.Track.Album.Images) > 0 {
		cover = item.Track.Album.Images[0].URL
	}
	return PlayRecord{
		TrackID:  item.Track.ID,
		PlayedAt: item.PlayedAt.UTC(),
		Title:    item.Track.Name,
		Artists:  strings.Join(names, ", "),
		Album:    item.Track.Album.Name,
		TrackURL: item.Track.ExternalURLs.Spotify,
		CoverURL: cover,
	}
}
