package planner

import (
	"fmt"
	"hash/fnv"

	"meal-scheduler/internal/catalog"
)

// Mode is the delivery pressure band for an item.
type Mode string

const (
	ModeGreen  Mode = "green"
	ModeYellow Mode = "yellow"
	ModeRed    Mode = "red"
)

const (
	greenFee  = 0.0
	yellowFee = 2.99
	redFee    = 5.99
)

// LogisticsInfo is the simulated delivery picture shown next to an item.
type LogisticsInfo struct {
	Mode        Mode    `json:"mode"`
	DeliveryFee float64 `json:"deliveryFee"`
	Neighbors   int     `json:"neighbors"`
	Description string  `json:"description"`
}

// GetLogisticsInfo maps its inputs to a delivery band. The same inputs
// always produce the same result.
func GetLogisticsInfo(itemID, vendorName, dayKey string, swapIndex, totalOptions int) LogisticsInfo {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%d|%d", itemID, vendorName, dayKey, swapIndex, totalOptions)
	sum := h.Sum64()

	bucket := sum % 100
	spread := sum / 100

	switch {
	case bucket < 55:
		n := 8 + int(spread%8)
		return LogisticsInfo{
			Mode:        ModeGreen,
			DeliveryFee: greenFee,
			Neighbors:   n,
			Description: fmt.Sprintf("%d neighbors ordering from %s, delivery rides along for free", n, vendorName),
		}
	case bucket < 85:
		n := 3 + int(spread%5)
		return LogisticsInfo{
			Mode:        ModeYellow,
			DeliveryFee: yellowFee,
			Neighbors:   n,
			Description: fmt.Sprintf("%d neighbors nearby, partial route share", n),
		}
	default:
		n := int(spread % 3)
		return LogisticsInfo{
			Mode:        ModeRed,
			DeliveryFee: redFee,
			Neighbors:   n,
			Description: fmt.Sprintf("Surge pricing at %s, dedicated driver required", vendorName),
		}
	}
}

// ComputeLogistics returns the logistics for every item in the plan.
func ComputeLogistics(plan *MealPlan) map[string]LogisticsInfo {
	out := make(map[string]LogisticsInfo)
	for slot, items := range plan.Items {
		for _, item := range items {
			out[item.ID] = itemLogistics(plan, slot, item)
		}
	}
	return out
}

func itemLogistics(plan *MealPlan, slot catalog.MealTime, item ScheduleItem) LogisticsInfo {
	return GetLogisticsInfo(
		item.ID,
		item.Meal.Vendor.Name,
		plan.Date,
		plan.Meta.SwapCounts[item.ID],
		len(plan.Items[slot]),
	)
}
