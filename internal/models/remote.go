package models

import "time"

// ChannelInfo is the channel metadata the cache needs
type ChannelInfo struct {
	ID                ChannelKey
	Title             string
	UploadsPlaylistID string
	VideoCount        int64
}

// VideoPage is one page of a channel's uploads
type VideoPage struct {
	Videos        []*Video
	NextPageToken string
}

// Playlist is a playlist owned by the authenticated user
type Playlist struct {
	ID            string
	Title         string
	Description   string
	PrivacyStatus string
	ItemCount     int64
}

// PlaylistPage is one page of the user's playlists
type PlaylistPage struct {
	Playlists     []Playlist
	NextPageToken string
}

// PlaylistItemsPage is one page of video ids in a playlist
type PlaylistItemsPage struct {
	VideoIDs []string
	// OldestPublished is the earliest publish time on the page, zero when
	// no item carries one
	OldestPublished time.Time
	NextPageToken   string
}
