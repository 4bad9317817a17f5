// Package validator is the gate between raw proposer output and the input
// layer. Nothing the proposer says reaches the executor without passing
// through Validate.
package validator

import (
	"fmt"
	"math"

	"screen-agent/internal/domain/entity"
)

// Validate applies the rejection rules in order, first failure wins:
//
//  1. target must exist in the calibration index
//  2. set_slider: delta required, finite, |delta*ratio| <= MaxPixelDelta
//  3. drag: dx/dy required, |dx| <= MaxDx, |dy| <= MaxDy
//  4. keypress: keys required, non-empty, every key in the allow-list
//  5. anything else: unknown action type
//
// Out-of-range motion is rejected outright, never clamped: clamping would
// silently alter the proposer's intended magnitude.
//
// Pure and deterministic: no state, no I/O, same inputs same result.
func Validate(p entity.ActionProposal, idx *entity.CalibrationIndex, policy entity.Policy) (entity.Action, error) {
	target, ok := idx.Resolve(p.Target)
	if !ok {
		return entity.Action{}, &entity.ValidationError{
			Reason: entity.RejectionUnknownTarget,
			Type:   p.Type,
			Target: p.Target,
			Detail: "target not present in calibration index",
		}
	}

	switch entity.ActionType(p.Type) {
	case entity.ActionSetSlider:
		return validateSetSlider(p, target, idx, policy)
	case entity.ActionDrag:
		return validateDrag(p, target, policy)
	case entity.ActionKeypress:
		return validateKeypress(p, target, policy)
	default:
		return entity.Action{}, &entity.ValidationError{
			Reason: entity.RejectionUnknownActionType,
			Type:   p.Type,
			Target: p.Target,
			Detail: fmt.Sprintf("unsupported action type %q", p.Type),
		}
	}
}

func validateSetSlider(p entity.ActionProposal, target entity.CalibrationTarget, idx *entity.CalibrationIndex, policy entity.Policy) (entity.Action, error) {
	if p.Delta == nil || math.IsNaN(*p.Delta) || math.IsInf(*p.Delta, 0) {
		return entity.Action{}, &entity.ValidationError{
			Reason: entity.RejectionOutOfRange,
			Type:   p.Type,
			Target: p.Target,
			Detail: "set_slider requires a finite delta",
		}
	}
	ratio := idx.RatioFor(target)
	pixels := *p.Delta * ratio
	if math.Abs(pixels) > policy.MaxPixelDelta {
		return entity.Action{}, &entity.ValidationError{
			Reason: entity.RejectionOutOfRange,
			Type:   p.Type,
			Target: p.Target,
			Detail: fmt.Sprintf("resolved pixel delta %.1f exceeds limit %.1f", math.Abs(pixels), policy.MaxPixelDelta),
		}
	}
	return entity.Action{
		Type:    entity.ActionSetSlider,
		Target:  target,
		Delta:   *p.Delta,
		PixelDX: pixels,
		Reason:  p.Reason,
	}, nil
}

func validateDrag(p entity.ActionProposal, target entity.CalibrationTarget, policy entity.Policy) (entity.Action, error) {
	if p.DX == nil || p.DY == nil || math.IsNaN(*p.DX) || math.IsNaN(*p.DY) || math.IsInf(*p.DX, 0) || math.IsInf(*p.DY, 0) {
		return entity.Action{}, &entity.ValidationError{
			Reason: entity.RejectionOutOfRange,
			Type:   p.Type,
			Target: p.Target,
			Detail: "drag requires finite dx and dy",
		}
	}
	if math.Abs(*p.DX) > policy.MaxDx || math.Abs(*p.DY) > policy.MaxDy {
		return entity.Action{}, &entity.ValidationError{
			Reason: entity.RejectionOutOfRange,
			Type:   p.Type,
			Target: p.Target,
			Detail: fmt.Sprintf("dx=%.1f dy=%.1f exceeds limits %.1f/%.1f", *p.DX, *p.DY, policy.MaxDx, policy.MaxDy),
		}
	}
	return entity.Action{
		Type:    entity.ActionDrag,
		Target:  target,
		PixelDX: *p.DX,
		PixelDY: *p.DY,
		Reason:  p.Reason,
	}, nil
}

func validateKeypress(p entity.ActionProposal, target entity.CalibrationTarget, policy entity.Policy) (entity.Action, error) {
	if len(p.Keys) == 0 {
		return entity.Action{}, &entity.ValidationError{
			Reason: entity.RejectionDisallowedKeys,
			Type:   p.Type,
			Target: p.Target,
			Detail: "keypress requires a non-empty key list",
		}
	}
	for _, key := range p.Keys {
		if !policy.KeyAllowed(key) {
			return entity.Action{}, &entity.ValidationError{
				Reason: entity.RejectionDisallowedKeys,
				Type:   p.Type,
				Target: p.Target,
				Detail: fmt.Sprintf("key %q not in allow-list", key),
			}
		}
	}
	keys := make([]string, len(p.Keys))
	copy(keys, p.Keys)
	return entity.Action{
		Type:   entity.ActionKeypress,
		Target: target,
		Keys:   keys,
		Reason: p.Reason,
	}, nil
}
