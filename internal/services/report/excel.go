package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"argus/pkg/errors"
)

const (
	sheetSummary      = "Summary"
	sheetParticipants = "Participants"
)

// ExportXLSX writes the report as a workbook with a Summary sheet (report
// header plus per-market turnover table) and a Participants sheet (one row
// per market, wallet, outcome position).
func ExportXLSX(data *Data, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetSummary)
	if _, err := f.NewSheet(sheetParticipants); err != nil {
		return errors.Wrap(err, "create participants sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "create header style")
	}

	if err := writeSummary(f, data, bold); err != nil {
		return err
	}
	if err := writeParticipants(f, data, bold); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save workbook")
	}
	return nil
}

func writeSummary(f *excelize.File, data *Data, bold int) error {
	header := [][2]interface{}{
		{"As of (UTC)", data.AsOf.UTC().Format("2006-01-02 15:04:05")},
		{"Total trades", data.TotalTrades},
		{"Unique traders", data.UniqueTraders},
		{"Total turnover (USD)", data.TotalTurnoverUSD},
	}
	for i, kv := range header {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(sheetSummary, cell, kv[0]); err != nil {
			return errors.Wrap(err, "write summary header")
		}
		_ = f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", i+1), kv[1])
		_ = f.SetCellStyle(sheetSummary, cell, cell, bold)
	}

	const tableRow = 6
	cols := []string{"conditionId", "market_slug", "question", "trades_count", "unique_traders", "buy_usd", "sell_usd", "turnover_usd"}
	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		_ = f.SetCellValue(sheetSummary, cell, h)
		_ = f.SetCellStyle(sheetSummary, cell, cell, bold)
	}

	for r, m := range data.Markets {
		row := tableRow + 1 + r
		values := []interface{}{
			m.ConditionID, m.Slug, m.Title,
			m.TradesCount, len(m.UniqueTraders),
			m.BuyUSD, m.SellUSD, m.TurnoverUSD,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(sheetSummary, cell, v); err != nil {
				return errors.Wrap(err, "write market row")
			}
		}
	}

	_ = f.SetColWidth(sheetSummary, "A", "A", 22)
	_ = f.SetColWidth(sheetSummary, "B", "C", 40)
	_ = f.SetColWidth(sheetSummary, "D", "H", 14)
	return nil
}

func writeParticipants(f *excelize.File, data *Data, bold int) error {
	cols := []string{
		"conditionId", "trader_name", "trader_pseudonym", "trader_address", "outcome",
		"buy_shares", "buy_usd", "sell_shares", "sell_usd",
		"net_shares", "net_spent_usd", "avg_buy_price", "avg_sell_price",
		"trades_count", "first_ts_utc", "last_ts_utc",
	}
	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetParticipants, cell, h)
		_ = f.SetCellStyle(sheetParticipants, cell, cell, bold)
	}

	for r, p := range data.Participants {
		values := []interface{}{
			p.ConditionID, p.Name, p.Pseudonym, p.Wallet, p.Outcome,
			p.BuyShares, p.BuyUSD, p.SellShares, p.SellUSD,
			p.NetShares(), p.NetSpentUSD(), p.AvgBuyPrice(), p.AvgSellPrice(),
			p.TradesCount, tsString(p.FirstTS), tsString(p.LastTS),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetParticipants, cell, v); err != nil {
				return errors.Wrap(err, "write participant row")
			}
		}
	}

	_ = f.SetColWidth(sheetParticipants, "A", "A", 22)
	_ = f.SetColWidth(sheetParticipants, "B", "D", 24)
	_ = f.SetColWidth(sheetParticipants, "E", "N", 14)
	_ = f.SetColWidth(sheetParticipants, "O", "P", 20)
	return nil
}

func tsString(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format("2006-01-02 15:04:05")
}
