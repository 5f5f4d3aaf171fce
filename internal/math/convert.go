package math

import "fmt"

// ConvertYesPrice computes the synthetic price of the YES tokens minted by
// a negative-risk conversion, given the average price of the burned NO
// positions. The burned NO tokens lock 1 unit of collateral per question
// less the one unit recovered across the group, so:
//
//	yes_price = (no_price*no_count - Scale*(no_count-1)) / (question_count - no_count)
//
// The result may be negative. A negative price is a cost-basis credit on
// the minted YES positions and flows through the weighted-average buy
// unchanged.
func ConvertYesPrice(noPrice int64, noCount, questionCount int) (int64, error) {
	if noCount <= 0 {
		return 0, fmt.Errorf("convert: no positions burned")
	}
	if noCount >= questionCount {
		return 0, fmt.Errorf("convert: burn set covers %d of %d questions, no complement to buy",
			noCount, questionCount)
	}

	num := noPrice*int64(noCount) - Scale*int64(noCount-1)
	return num / int64(questionCount-noCount), nil
}
