package ingestion

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/coreybb/consumo/models"
)

// Generator produces a synthetic day of hourly readings for one device.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator drawing from src. A nil src gets a
// time-seeded PCG source.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())
	}
	return &Generator{rng: rand.New(src)}
}

// Generate returns one reading per hour slot from 00:00 to 23:00, each with a
// consumption drawn uniformly from [MinConsumption, MaxConsumption) and
// rounded to ConsumptionPrecision decimals.
func (g *Generator) Generate(date, device string) []models.Reading {
	readings := make([]models.Reading, 0, models.HoursPerDay)

	g.mu.Lock()
	defer g.mu.Unlock()

	for hour := 0; hour < models.HoursPerDay; hour++ {
		v := models.MinConsumption + g.rng.Float64()*(models.MaxConsumption-models.MinConsumption)
		readings = append(readings, models.Reading{
			Date:        date,
			Hour:        fmt.Sprintf("%02d:00", hour),
			Device:      device,
			Consumption: roundTo(v, models.ConsumptionPrecision),
		})
	}
	return readings
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
