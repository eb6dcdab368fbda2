package roster_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
)

func TestParseCSV(t *testing.T) {
	input := `Name,Rank,DOB,Alumni,Age,Rating,Role,Base,Batting_Hand,Is_WK
"Sharma, Rohit",3,1987-04-30,Swami Vivekanand,38,91,Batsman,150,Right,no
,5,,,,70,Bowler,,,
Pant,20,1997-10-04,,28,84,Wicket Keeper,,L,yes
Unranked,,,,,40,Bowler,,,
`
	players, err := roster.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(players) != 3 {
		t.Fatalf("players = %d, want 3 (blank name skipped)", len(players))
	}

	first := players[0]
	if first.Name != "Sharma, Rohit" {
		t.Errorf("Name = %q, want embedded comma preserved", first.Name)
	}
	if first.Category != 1 || first.Base != 150 || first.Rating != 91 {
		t.Errorf("first = %+v, want category 1, base 150, rating 91", first)
	}
	if first.Age == nil || *first.Age != 38 {
		t.Errorf("Age = %v, want 38", first.Age)
	}
	if first.ID == "" {
		t.Error("expected generated id")
	}
	if first.Status != roster.StatusPending || first.FinalBid != nil {
		t.Errorf("status = %q final = %v, want pending without bid", first.Status, first.FinalBid)
	}

	pant := players[1]
	if pant.Category != 2 {
		t.Errorf("Category = %d, want 2", pant.Category)
	}
	if !pant.IsWK || pant.BattingHand != roster.HandLeft {
		t.Errorf("pant = %+v, want left-handed keeper", pant)
	}
	if pant.Base != 0 {
		t.Errorf("Base = %d, want 0 until filled", pant.Base)
	}

	if players[2].Category != roster.LowestCategory {
		t.Errorf("unranked Category = %d, want %d", players[2].Category, roster.LowestCategory)
	}
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty payload", input: "", wantErr: roster.ErrEmptyImport},
		{name: "header only", input: "name,role\n", wantErr: roster.ErrEmptyImport},
		{name: "only blank names", input: "name,role\n,Bowler\n", wantErr: roster.ErrEmptyImport},
		{name: "missing name column", input: "role,rank\nBowler,3\n", wantErr: roster.ErrMissingColumn},
		{name: "bad rating", input: "name,rating\nX,abc\n", wantErr: roster.ErrInvalidField},
		{name: "NaN rating", input: "name,rank,rating,role,base\nA,1,NaN,Batsman,100\n", wantErr: roster.ErrInvalidField},
		{name: "infinite rating", input: "name,rank,rating,role,base\nB,2,Inf,Bowler,100\n", wantErr: roster.ErrInvalidField},
		{name: "negative infinite stat", input: "name,economy\nC,-Inf\n", wantErr: roster.ErrInvalidField},
		{name: "fractional base", input: "name,base\nD,99.9\n", wantErr: roster.ErrInvalidField},
		{name: "NaN base", input: "name,base\nE,nan\n", wantErr: roster.ErrInvalidField},
		{name: "fractional final bid", input: "name,final_bid\nF,120.5\n", wantErr: roster.ErrInvalidField},
		{name: "final bid out of range", input: "name,final_bid\nG,1e30\n", wantErr: roster.ErrInvalidField},
		{name: "NaN final bid", input: "name,final_bid\nH,NaN\n", wantErr: roster.ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := roster.ParseCSV(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseCSV() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseCSV_UnbalancedQuote(t *testing.T) {
	_, err := roster.ParseCSV(strings.NewReader("name,role\n\"Broken,Bowler\n"))
	if err == nil {
		t.Fatal("expected error for unterminated quote")
	}
}

func TestExportCSV_RoundTrip(t *testing.T) {
	bid1, bid2 := 210, 95
	players := []roster.Player{
		{ID: "1", Name: `Dhoni "Captain Cool", MS`, Role: "Wicket Keeper", Category: 1, Rating: 93.5, Base: 100, Status: roster.StatusWon, FinalBid: &bid1},
		{ID: "2", Name: "Pending Guy", Role: "Bowler", Category: 2, Rating: 70, Base: 80, Status: roster.StatusPending},
		{ID: "3", Name: "Line\nBreak", Role: "All Rounder", Category: 4, Rating: 61, Base: 50, Status: roster.StatusWon, FinalBid: &bid2},
		{ID: "4", Name: "Lost Guy", Role: "Batsman", Category: 3, Rating: 50, Base: 60, Status: roster.StatusLost},
	}

	var buf bytes.Buffer
	if err := roster.ExportCSV(&buf, players); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"Dhoni ""Captain Cool"", MS"`) {
		t.Errorf("export did not quote and double internal quotes:\n%s", buf.String())
	}

	got, err := roster.ParseCSV(&buf)
	if err != nil {
		t.Fatalf("ParseCSV(export) error = %v", err)
	}
	want := []roster.Player{players[0], players[2]}
	if len(got) != len(want) {
		t.Fatalf("round trip players = %d, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Name != w.Name || g.Role != w.Role || g.Category != w.Category || g.Rating != w.Rating {
			t.Errorf("round trip %d = %+v, want %+v", i, g, w)
		}
		if g.FinalBid == nil || *g.FinalBid != *w.FinalBid {
			t.Errorf("round trip %d final bid = %v, want %d", i, g.FinalBid, *w.FinalBid)
		}
		if g.Status != roster.StatusWon {
			t.Errorf("round trip %d status = %q, want won", i, g.Status)
		}
	}
}
