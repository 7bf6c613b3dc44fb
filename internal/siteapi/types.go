package siteapi

import (
	"github.com/keithlinneman/socialblog/internal/content"
	"github.com/keithlinneman/socialblog/internal/social"
)

// PostsResponse lists published posts newest first.
type PostsResponse struct {
	Posts []content.Post `json:"posts"`
	Total int            `json:"total"`
}

// PostResponse is one post with the data its page shows alongside it.
type PostResponse struct {
	Post    content.Post       `json:"post"`
	Related []content.Post     `json:"related"`
	Share   []social.ShareLink `json:"share"`
}

type CategoriesResponse struct {
	Categories []content.Category `json:"categories"`
	Total      int                `json:"total"`
}

type AuthorsResponse struct {
	Authors []content.Author `json:"authors"`
	Total   int              `json:"total"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
