package report

import (
	"sort"
	"strings"
	"time"

	"argus/internal/domain/trade"
)

// MarketTotals is one market's turnover rollup.
type MarketTotals struct {
	ConditionID string
	Slug        string
	Title       string

	TradesCount   int
	BuyUSD        float64
	SellUSD       float64
	TurnoverUSD   float64
	UniqueTraders map[string]struct{}
}

// ParticipantTotals is one (market, wallet, outcome) position rollup.
type ParticipantTotals struct {
	ConditionID string
	Wallet      string
	Outcome     string
	Name        string
	Pseudonym   string

	BuyShares  float64
	BuyUSD     float64
	SellShares float64
	SellUSD    float64

	TradesCount int
	FirstTS     time.Time
	LastTS      time.Time
}

// NetShares is bought minus sold shares.
func (p ParticipantTotals) NetShares() float64 {
	return p.BuyShares - p.SellShares
}

// NetSpentUSD is buy volume minus sell volume.
func (p ParticipantTotals) NetSpentUSD() float64 {
	return p.BuyUSD - p.SellUSD
}

// AvgBuyPrice is the volume-weighted average buy price, 0 without buys.
func (p ParticipantTotals) AvgBuyPrice() float64 {
	if p.BuyShares == 0 {
		return 0
	}
	return p.BuyUSD / p.BuyShares
}

// AvgSellPrice is the volume-weighted average sell price, 0 without sells.
func (p ParticipantTotals) AvgSellPrice() float64 {
	if p.SellShares == 0 {
		return 0
	}
	return p.SellUSD / p.SellShares
}

// Data is a complete activity report over a set of fetched trades.
type Data struct {
	AsOf time.Time

	TotalTrades      int
	UniqueTraders    int
	TotalTurnoverUSD float64

	Markets      []*MarketTotals      // sorted by turnover desc
	Participants []*ParticipantTotals // sorted by net spent desc, then gross
}

// Aggregate folds raw trades into market and participant rollups.
//
// Records missing a market or wallet are skipped, mirroring the ingest
// normalizer's data-quality stance. Side strings are compared
// case-insensitively; anything that is neither BUY nor SELL still counts
// toward turnover and trade counts.
func Aggregate(trades []trade.Raw, asOf time.Time) *Data {
	markets := map[string]*MarketTotals{}
	participants := map[[3]string]*ParticipantTotals{}
	allTraders := map[string]struct{}{}

	d := &Data{AsOf: asOf}

	for _, tr := range trades {
		if tr.ConditionID == "" || tr.ProxyWallet == "" {
			continue
		}

		usd := tr.Price * tr.Size
		side := strings.ToUpper(tr.Side)

		mt, ok := markets[tr.ConditionID]
		if !ok {
			mt = &MarketTotals{
				ConditionID:   tr.ConditionID,
				Slug:          tr.Slug,
				Title:         tr.Title,
				UniqueTraders: map[string]struct{}{},
			}
			markets[tr.ConditionID] = mt
		}

		mt.TradesCount++
		mt.TurnoverUSD += usd
		switch side {
		case "BUY":
			mt.BuyUSD += usd
		case "SELL":
			mt.SellUSD += usd
		}
		mt.UniqueTraders[tr.ProxyWallet] = struct{}{}
		allTraders[tr.ProxyWallet] = struct{}{}

		key := [3]string{tr.ConditionID, tr.ProxyWallet, tr.Outcome}
		pt, ok := participants[key]
		if !ok {
			pt = &ParticipantTotals{
				ConditionID: tr.ConditionID,
				Wallet:      tr.ProxyWallet,
				Outcome:     tr.Outcome,
				Name:        tr.Name,
				Pseudonym:   tr.Pseudonym,
			}
			participants[key] = pt
		}
		if pt.Name == "" && tr.Name != "" {
			pt.Name = tr.Name
		}
		if pt.Pseudonym == "" && tr.Pseudonym != "" {
			pt.Pseudonym = tr.Pseudonym
		}

		switch side {
		case "BUY":
			pt.BuyShares += tr.Size
			pt.BuyUSD += usd
		case "SELL":
			pt.SellShares += tr.Size
			pt.SellUSD += usd
		}
		pt.TradesCount++

		if tr.Timestamp > 0 {
			ts := time.Unix(tr.Timestamp, 0).UTC()
			if pt.FirstTS.IsZero() || ts.Before(pt.FirstTS) {
				pt.FirstTS = ts
			}
			if pt.LastTS.IsZero() || ts.After(pt.LastTS) {
				pt.LastTS = ts
			}
		}

		d.TotalTrades++
		d.TotalTurnoverUSD += usd
	}

	d.UniqueTraders = len(allTraders)

	d.Markets = make([]*MarketTotals, 0, len(markets))
	for _, mt := range markets {
		d.Markets = append(d.Markets, mt)
	}
	sort.Slice(d.Markets, func(i, j int) bool {
		return d.Markets[i].TurnoverUSD > d.Markets[j].TurnoverUSD
	})

	d.Participants = make([]*ParticipantTotals, 0, len(participants))
	for _, pt := range participants {
		d.Participants = append(d.Participants, pt)
	}
	sort.Slice(d.Participants, func(i, j int) bool {
		a, b := d.Participants[i], d.Participants[j]
		if a.NetSpentUSD() != b.NetSpentUSD() {
			return a.NetSpentUSD() > b.NetSpentUSD()
		}
		return a.BuyUSD+a.SellUSD > b.BuyUSD+b.SellUSD
	})

	return d
}
