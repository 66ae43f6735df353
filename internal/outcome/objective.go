package outcome

import (
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

// DetectCaptures finds neutral objective takedowns. Objective entities live
// in a high id range; the capturing side is read from the credit flow
// recorded around the objective's death in the byte stream.
func (d *Detector) DetectCaptures(events []model.Event, teamOf func(model.EntityID) model.Team) []model.ObjectiveCapture {
	threshold := model.EntityID(d.objectives.EntityThreshold)
	actions := make(map[byte]bool, len(d.objectives.CreditActions))
	for _, a := range d.objectives.CreditActions {
		actions[byte(a)] = true
	}

	var captures []model.ObjectiveCapture
	for _, ev := range events {
		if ev.Kind() != model.KindDeath || ev.Entity <= threshold {
			continue
		}

		capture := model.ObjectiveCapture{
			Entity:     ev.Entity,
			Frame:      ev.Frame,
			Team:       model.TeamUnknown,
			Confidence: 0,
		}
		if ev.HasTimestamp {
			capture.Timestamp = ev.Timestamp
		}

		// Sum reward credits per side in the surrounding byte window.
		var left, right float64
		for _, c := range events {
			if c.Kind() != model.KindCredit {
				continue
			}
			delta := c.Offset - ev.Offset
			if delta < -d.objectives.CreditRadius || delta > d.objectives.CreditRadius {
				continue
			}
			p := c.Payload.(model.CreditPayload)
			if !actions[p.Action] {
				continue
			}
			switch teamOf(c.Entity) {
			case model.TeamLeft:
				left += p.Amount
			case model.TeamRight:
				right += p.Amount
			}
		}

		switch {
		case left > d.objectives.CreditRatio*right && left > 0:
			capture.Team = model.TeamLeft
			capture.Confidence = d.objectives.Confidence
		case right > d.objectives.CreditRatio*left && right > 0:
			capture.Team = model.TeamRight
			capture.Confidence = d.objectives.Confidence
		}
		captures = append(captures, capture)
	}
	return captures
}
