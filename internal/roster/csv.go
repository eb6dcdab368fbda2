package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Errors returned by roster import.
var (
	ErrEmptyImport   = errors.New("import contains no players")
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidField  = errors.New("invalid field value")
)

// MaxImportSize caps how many bytes of a roster sheet are accepted.
const MaxImportSize = 4 << 20

// ExportHeader is the column layout written by ExportCSV.
var ExportHeader = []string{"name", "role", "category", "rating", "final_bid"}

// ParseCSV reads a header-driven delimited roster. Columns are matched by
// name, case-insensitively, and may appear in any order. Rows with a blank
// name are skipped. Players without an id column get a fresh UUID.
func ParseCSV(r io.Reader) ([]Player, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyImport
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("%w: name", ErrMissingColumn)
	}

	var players []Player
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		row := csvRow{cols: cols, rec: rec, line: line}
		name := row.get("name")
		if name == "" {
			continue
		}
		p, err := row.player(name)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}

	if len(players) == 0 {
		return nil, ErrEmptyImport
	}
	return players, nil
}

// ExportCSV writes the won players as name, role, category, rating and
// final bid. Values containing commas, quotes or newlines are quoted with
// internal quotes doubled.
func ExportCSV(w io.Writer, players []Player) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range players {
		if !p.IsWon() || p.FinalBid == nil {
			continue
		}
		rec := []string{
			p.Name,
			p.Role,
			strconv.Itoa(p.Category),
			strconv.FormatFloat(p.Rating, 'f', -1, 64),
			strconv.Itoa(*p.FinalBid),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing %s: %w", p.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.ReplaceAll(h, " ", "_")
}

type csvRow struct {
	cols map[string]int
	rec  []string
	line int
}

func (r csvRow) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r csvRow) player(name string) (Player, error) {
	p := Player{
		ID:           r.get("id"),
		Name:         name,
		Role:         r.get("role"),
		DOB:          r.get("dob"),
		Alumni:       r.get("alumni"),
		BattingHand:  ParseHand(r.get("batting_hand")),
		IsWK:         parseBool(r.get("is_wk")),
		Availability: ParseAvailability(r.get("availability")),
		Status:       StatusPending,
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	var err error
	if p.Rank, err = r.intField("rank"); err != nil {
		return Player{}, err
	}
	if p.Rating, err = r.floatField("rating"); err != nil {
		return Player{}, err
	}
	if p.Base, err = r.intField("base"); err != nil {
		return Player{}, err
	}

	switch {
	case r.get("rank") != "":
		p.Category = CategoryFromRank(p.Rank)
	case r.get("category") != "":
		c, err := r.intField("category")
		if err != nil {
			return Player{}, err
		}
		p.Category = min(max(c, 1), LowestCategory)
	default:
		p.Category = LowestCategory
	}

	if p.Age, err = r.optInt("age"); err != nil {
		return Player{}, err
	}
	if p.FinalBid, err = r.optInt("final_bid"); err != nil {
		return Player{}, err
	}
	if p.FinalBid != nil {
		p.Status = StatusWon
	}
	if p.PerfIndex, err = r.optFloat("perf_index"); err != nil {
		return Player{}, err
	}
	if p.Stats.BattingAverage, err = r.optFloat("bat_avg"); err != nil {
		return Player{}, err
	}
	if p.Stats.StrikeRate, err = r.optFloat("strike_rate"); err != nil {
		return Player{}, err
	}
	if p.Stats.Wickets, err = r.optFloat("wickets"); err != nil {
		return Player{}, err
	}
	if p.Stats.Economy, err = r.optFloat("economy"); err != nil {
		return Player{}, err
	}
	return p, nil
}

func (r csvRow) intField(col string) (int, error) {
	v, err := r.optInt(col)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

func (r csvRow) floatField(col string) (float64, error) {
	v, err := r.optFloat(col)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

// maxIntField bounds integer columns to values a float64 represents exactly.
const maxIntField = 1 << 53

func (r csvRow) optInt(col string) (*int, error) {
	f, err := r.optFloat(col)
	if err != nil || f == nil {
		return nil, err
	}
	// Accept "12.0" style numbers exported by spreadsheets.
	if *f != math.Trunc(*f) || math.Abs(*f) > maxIntField {
		return nil, r.invalid(col)
	}
	v := int(*f)
	return &v, nil
}

func (r csvRow) optFloat(col string) (*float64, error) {
	s := r.get(col)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, r.invalid(col)
	}
	return &f, nil
}

func (r csvRow) invalid(col string) error {
	return fmt.Errorf("%w: line %d column %s: %q", ErrInvalidField, r.line, col, r.get(col))
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "wk":
		return true
	default:
		return false
	}
}
