package reports

import (
	"github.com/shopspring/decimal"
)

// margins are percentages rounded to this many places; profits are exact
const marginPlaces = 2

var hundred = decimal.NewFromInt(100)

type Profitability struct {
	SdpMargin *decimal.Decimal `json:"sdpMargin"`
	SrpMargin *decimal.Decimal `json:"srpMargin"`
	SdpProfit *decimal.Decimal `json:"sdpProfit"`
	SrpProfit *decimal.Decimal `json:"srpProfit"`
}

// ComputeProfitability derives dealer and retail margins from one SKU's prices and landing cost.
// A figure whose base is zero or negative is nil ("not computable"), never zero.
//
//	sdpMargin = (sdp - cost) / sdp * 100   when sdp > 0 and cost > 0
//	srpMargin = (srp - sdp) / srp * 100    when srp > 0 and sdp > 0
func ComputeProfitability(sdp, srp, cost decimal.Decimal) Profitability {
	var p Profitability
	if sdp.IsPositive() && cost.IsPositive() {
		profit := sdp.Sub(cost)
		margin := profit.Div(sdp).Mul(hundred).Round(marginPlaces)
		p.SdpProfit = &profit
		p.SdpMargin = &margin
	}
	if srp.IsPositive() && sdp.IsPositive() {
		profit := srp.Sub(sdp)
		margin := profit.Div(srp).Mul(hundred).Round(marginPlaces)
		p.SrpProfit = &profit
		p.SrpMargin = &margin
	}
	return p
}
