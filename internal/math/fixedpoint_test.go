package math_test

import (
	"testing"

	fpmath "OutcomeLedger/internal/math"
)

func TestWeightedAvgPrice_FirstBuy(t *testing.T) {
	avg := fpmath.WeightedAvgPrice(0, 0, 100_000_000, 650_000)
	if avg != 650_000 {
		t.Errorf("first buy should set avg to fill price, got %d", avg)
	}
}

func TestWeightedAvgPrice_Blend(t *testing.T) {
	// 100 tokens @ 0.40 + 100 tokens @ 0.60 -> 0.50
	avg := fpmath.WeightedAvgPrice(100_000_000, 400_000, 100_000_000, 600_000)
	if avg != 500_000 {
		t.Errorf("got %d, want 500_000", avg)
	}
}

func TestWeightedAvgPrice_NegativeFillPrice(t *testing.T) {
	// Synthetic convert buys can carry negative prices; the average
	// must blend them like any other price.
	avg := fpmath.WeightedAvgPrice(100_000_000, 400_000, 100_000_000, -200_000)
	if avg != 100_000 {
		t.Errorf("got %d, want 100_000", avg)
	}
}

func TestSellPnL_Profit(t *testing.T) {
	// 100 tokens bought @ 0.65 sold @ 0.80 -> $15.00
	pnl := fpmath.SellPnL(100_000_000, 800_000, 650_000)
	if pnl != 15_000_000 {
		t.Errorf("got %d, want 15_000_000", pnl)
	}
}

func TestSellPnL_Loss(t *testing.T) {
	pnl := fpmath.SellPnL(100_000_000, 400_000, 650_000)
	if pnl != -25_000_000 {
		t.Errorf("got %d, want -25_000_000", pnl)
	}
}

func TestFillPrice_Truncates(t *testing.T) {
	// 1 collateral unit over 3 tokens: 333_333.33... truncates to 333_333
	price := fpmath.FillPrice(1_000_000, 3_000_000)
	if price != 333_333 {
		t.Errorf("got %d, want 333_333", price)
	}
}

func TestPayoutPrice(t *testing.T) {
	if p := fpmath.PayoutPrice(1, 1); p != 1_000_000 {
		t.Errorf("winning payout: got %d, want 1_000_000", p)
	}
	if p := fpmath.PayoutPrice(0, 1); p != 0 {
		t.Errorf("losing payout: got %d, want 0", p)
	}
}

func TestConvertYesPrice_Boundaries(t *testing.T) {
	tests := []struct {
		name          string
		noPrice       int64
		noCount       int
		questionCount int
		want          int64
	}{
		{"three of five at 0.75", 750_000, 3, 5, 125_000},
		{"one of six at 0.73", 730_000, 1, 6, 146_000},
		{"deep no positions go negative", 100_000, 3, 5, -850_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fpmath.ConvertYesPrice(tt.noPrice, tt.noCount, tt.questionCount)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConvertYesPrice_FullBurnSetRejected(t *testing.T) {
	_, err := fpmath.ConvertYesPrice(500_000, 5, 5)
	if err == nil {
		t.Error("burn set covering all questions should be rejected")
	}
}

func TestConvertYesPrice_EmptyBurnSetRejected(t *testing.T) {
	_, err := fpmath.ConvertYesPrice(500_000, 0, 5)
	if err == nil {
		t.Error("empty burn set should be rejected")
	}
}
