package policy

import "errors"

var (
	// ErrUnknownPolicy indicates a selector name NewSelector does not know.
	ErrUnknownPolicy = errors.New("policy: unknown action selector")

	// ErrInvalidSchedule indicates an epsilon schedule that cannot decay.
	ErrInvalidSchedule = errors.New("policy: invalid epsilon schedule")

	// ErrModelRequired indicates a model-driven selector run without a model.
	ErrModelRequired = errors.New("policy: selector needs a model")

	// ErrWeightShape indicates model weights whose dimensions do not line up.
	ErrWeightShape = errors.New("policy: weight shape mismatch")
)
