package friends

import (
	"fmt"
	"sort"

	"github.com/platemate/server/model"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// SearchPageSize is the fixed page size of user search results.
const SearchPageSize = 20

// searchScoreCutoff is the similarity score a candidate name must strictly
// exceed to be included in term-filtered results.
const searchScoreCutoff = 50

// SearchEntry is one candidate in a search result, annotated with the
// caller-relative friendship status.
type SearchEntry struct {
	ID           int64  `json:"id"`
	Handle       string `json:"handle"`
	Name         string `json:"name"`
	FriendStatus Status `json:"friend_status"`
}

// SearchResult is a single page of annotated candidates.
type SearchResult struct {
	Users      []SearchEntry `json:"user_data"`
	TotalPages int           `json:"total_pages"`
}

// SearchUsers lists every user except the caller, annotates each with the
// caller's relationship to them, optionally ranks by fuzzy similarity of
// the display name against term, and returns the requested page.
//
// An empty term returns all candidates in listing order. A non-empty term
// keeps only candidates whose weighted-ratio score against the term exceeds
// the cutoff, ordered by descending score. No matches is an empty result,
// not an error; a page past the end of a non-empty result is
// ErrPageOutOfRange.
func (s *Service) SearchUsers(caller model.User, term string, page int) (*SearchResult, error) {
	if err := validUser(caller); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page %d", ErrInvalidArgument, page)
	}

	var candidates []model.User
	if err := s.db.Where("id <> ?", caller.ID).Find(&candidates).Error; err != nil {
		return nil, err
	}

	friendIDs, err := s.FriendIDs(caller, false)
	if err != nil {
		return nil, err
	}
	pendingIDs, err := s.pendingIDs(caller)
	if err != nil {
		return nil, err
	}

	entries := make([]SearchEntry, len(candidates))
	for i, u := range candidates {
		entries[i] = SearchEntry{
			ID:           u.ID,
			Handle:       u.Handle,
			Name:         u.DisplayName(),
			FriendStatus: statusTag(u.ID, friendIDs, pendingIDs),
		}
	}

	if term != "" {
		entries = rankByName(term, entries)
	}

	totalPages := (len(entries) + SearchPageSize - 1) / SearchPageSize
	if totalPages == 0 {
		return &SearchResult{Users: []SearchEntry{}, TotalPages: 0}, nil
	}
	if page > totalPages {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, totalPages)
	}

	start := (page - 1) * SearchPageSize
	end := start + SearchPageSize
	if end > len(entries) {
		end = len(entries)
	}
	return &SearchResult{Users: entries[start:end], TotalPages: totalPages}, nil
}

// pendingIDs returns the ids of every user with a pending request to or
// from the given user.
func (s *Service) pendingIDs(u model.User) ([]int64, error) {
	rows, err := s.relationshipsWithStatus(u, StatusPending, DirectionBoth)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, f := range rows {
		ids[i] = f.CounterpartID(u.ID)
	}
	return ids, nil
}

// statusTag derives the caller-relative status of a candidate id.
func statusTag(id int64, friendIDs, pendingIDs []int64) Status {
	for _, fid := range friendIDs {
		if fid == id {
			return StatusFriends
		}
	}
	for _, pid := range pendingIDs {
		if pid == id {
			return StatusPending
		}
	}
	return StatusNotFriends
}

// rankByName scores each unique display name against the term with the
// composite weighted-ratio scorer, drops names at or below the cutoff, and
// expands the surviving names back to their candidates in descending score
// order. Candidates sharing an identical display name stay adjacent, in
// listing order.
func rankByName(term string, entries []SearchEntry) []SearchEntry {
	type nameRank struct {
		name  string
		score int
	}

	seen := make(map[string]bool, len(entries))
	ranks := make([]nameRank, 0, len(entries))
	for _, e := range entries {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		if score := fuzzy.WRatio(term, e.Name); score > searchScoreCutoff {
			ranks = append(ranks, nameRank{name: e.Name, score: score})
		}
	}

	// Stable: equal scores keep the scorer's return order.
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].score > ranks[j].score })

	ranked := make([]SearchEntry, 0, len(entries))
	for _, r := range ranks {
		for _, e := range entries {
			if e.Name == r.name {
				ranked = append(ranked, e)
			}
		}
	}
	return ranked
}
