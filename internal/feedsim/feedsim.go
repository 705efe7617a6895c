// Package feedsim serves fake queue and results feeds with a scripted
// match progression, so the engine can be exercised locally without
// real upstream credentials.
package feedsim

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Match is one scripted qualification match.
type Match struct {
	Label     string
	Sequence  int
	Red       []string
	Blue      []string
	Status    string
	RedScore  int
	BlueScore int
	Winner    string

	autoBonus  bool
	bargeBonus bool
	coralBonus bool
	coopBonus  bool
}

// Simulator holds the scripted event state and advances it one step at a
// time: the on-field match completes, the next one takes the field, and the
// two after that move into the queue.
type Simulator struct {
	mu         sync.Mutex
	eventKey   string
	nowQueuing string
	matches    []Match
	rng        *rand.Rand
}

// New builds a simulator with a generated qualification schedule over the
// given team list.
func New(eventKey string, teams []string, matchCount int) *Simulator {
	if len(teams) < 6 {
		teams = []string{"340", "1511", "3015", "5254", "191", "578"}
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	matches := make([]Match, 0, matchCount)
	for i := 0; i < matchCount; i++ {
		shuffled := append([]string(nil), teams...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		matches = append(matches, Match{
			Label:    "Qualification " + strconv.Itoa(i+1),
			Sequence: i + 1,
			Red:      shuffled[0:3],
			Blue:     shuffled[3:6],
			Status:   "Scheduled",
		})
	}

	s := &Simulator{
		eventKey: strings.ToLower(eventKey),
		matches:  matches,
		rng:      rng,
	}
	s.mu.Lock()
	s.advanceLocked()
	s.mu.Unlock()
	return s
}

// Run advances the schedule until ctx is cancelled.
func (s *Simulator) Run(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.Advance()
		}
	}
}

// Advance moves the schedule one step forward.
func (s *Simulator) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
}

func (s *Simulator) advanceLocked() {
	next := -1
	for i := range s.matches {
		if s.matches[i].Status == "On field" {
			s.completeMatch(&s.matches[i])
		}
		if next == -1 && s.matches[i].Status != "Completed" {
			next = i
		}
	}
	if next == -1 {
		s.nowQueuing = ""
		return
	}

	s.matches[next].Status = "On field"
	s.nowQueuing = ""
	for i := next + 1; i < len(s.matches) && i <= next+2; i++ {
		s.matches[i].Status = "Queued"
		if s.nowQueuing == "" {
			s.nowQueuing = s.matches[i].Label
		}
	}
}

func (s *Simulator) completeMatch(m *Match) {
	m.Status = "Completed"
	m.RedScore = 20 + s.rng.Intn(80)
	m.BlueScore = 20 + s.rng.Intn(80)
	switch {
	case m.RedScore > m.BlueScore:
		m.Winner = "red"
	case m.BlueScore > m.RedScore:
		m.Winner = "blue"
	default:
		m.Winner = ""
	}
	m.autoBonus = s.rng.Intn(2) == 0
	m.bargeBonus = s.rng.Intn(2) == 0
	m.coralBonus = s.rng.Intn(2) == 0
	m.coopBonus = s.rng.Intn(4) == 0
}

// Handler serves both upstream feed surfaces from one mux:
//
//	GET /api/v1/event/{eventKey}                        -> queue state
//	GET /api/v3/event/{eventKey}/matches                -> scored matches
//	GET /api/v3/team/frc{team}/event/{eventKey}/status  -> ranking status
func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/event/", s.handleQueue)
	mux.HandleFunc("/api/v3/event/", s.handleMatches)
	mux.HandleFunc("/api/v3/team/", s.handleTeamStatus)
	return mux
}

func (s *Simulator) handleQueue(w http.ResponseWriter, r *http.Request) {
	eventKey := strings.TrimPrefix(r.URL.Path, "/api/v1/event/")
	if !strings.EqualFold(eventKey, s.eventKey) {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type queueMatch struct {
		Label     string   `json:"label"`
		Status    string   `json:"status"`
		RedTeams  []string `json:"redTeams"`
		BlueTeams []string `json:"blueTeams"`
	}
	out := struct {
		NowQueuing string       `json:"nowQueuing"`
		Matches    []queueMatch `json:"matches"`
	}{NowQueuing: s.nowQueuing}

	for _, m := range s.matches {
		status := m.Status
		// The live queue feed reports completed matches as merely having
		// left the field; completion is the consumer's inference.
		if status == "Completed" {
			status = "On field"
		}
		out.Matches = append(out.Matches, queueMatch{
			Label:     m.Label,
			Status:    status,
			RedTeams:  prefixTeams(m.Red),
			BlueTeams: prefixTeams(m.Blue),
		})
	}
	writeJSON(w, out)
}

func (s *Simulator) handleMatches(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v3/event/")
	eventKey := strings.TrimSuffix(rest, "/matches")
	if eventKey == rest || !strings.EqualFold(eventKey, s.eventKey) {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type alliance struct {
		Score int `json:"score"`
	}
	type resultMatch struct {
		Key             string `json:"key"`
		CompLevel       string `json:"comp_level"`
		MatchNumber     int    `json:"match_number"`
		WinningAlliance string `json:"winning_alliance"`
		Alliances       *struct {
			Red  alliance `json:"red"`
			Blue alliance `json:"blue"`
		} `json:"alliances"`
		ScoreBreakdown map[string]map[string]any `json:"score_breakdown"`
	}

	var out []resultMatch
	for _, m := range s.matches {
		rm := resultMatch{
			Key:         fmt.Sprintf("%s_qm%d", s.eventKey, m.Sequence),
			CompLevel:   "qm",
			MatchNumber: m.Sequence,
		}
		if m.Status == "Completed" {
			rm.WinningAlliance = m.Winner
			rm.Alliances = &struct {
				Red  alliance `json:"red"`
				Blue alliance `json:"blue"`
			}{Red: alliance{Score: m.RedScore}, Blue: alliance{Score: m.BlueScore}}
			breakdown := map[string]any{
				"autoBonusAchieved":  m.autoBonus,
				"bargeBonusAchieved": m.bargeBonus,
				"coralBonusAchieved": m.coralBonus,
				"coopertitionBonus":  m.coopBonus,
			}
			rm.ScoreBreakdown = map[string]map[string]any{
				"red":  breakdown,
				"blue": breakdown,
			}
		}
		out = append(out, rm)
	}
	writeJSON(w, out)
}

func (s *Simulator) handleTeamStatus(w http.ResponseWriter, r *http.Request) {
	// Path shape: /api/v3/team/frc{team}/event/{eventKey}/status
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v3/team/"), "/")
	if len(parts) != 4 || parts[1] != "event" || parts[3] != "status" {
		http.NotFound(w, r)
		return
	}
	team := strings.TrimPrefix(parts[0], "frc")
	if !strings.EqualFold(parts[2], s.eventKey) {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wins, losses, ties, played := 0, 0, 0, 0
	for _, m := range s.matches {
		if m.Status != "Completed" {
			continue
		}
		side := ""
		for _, t := range m.Red {
			if t == team {
				side = "red"
			}
		}
		for _, t := range m.Blue {
			if t == team {
				side = "blue"
			}
		}
		if side == "" {
			continue
		}
		played++
		switch {
		case m.Winner == side:
			wins++
		case m.Winner == "":
			ties++
		default:
			losses++
		}
	}

	out := map[string]any{
		"qual": map[string]any{
			"num_teams": 6,
			"ranking": map[string]any{
				"rank":           1 + s.rng.Intn(6),
				"matches_played": played,
				"ranking_points": float64(wins*3 + ties),
				"record": map[string]int{
					"wins":   wins,
					"losses": losses,
					"ties":   ties,
				},
			},
		},
	}
	writeJSON(w, out)
}

func prefixTeams(teams []string) []string {
	out := make([]string, len(teams))
	for i, t := range teams {
		out[i] = "frc" + t
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
