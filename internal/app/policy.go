package app

import (
	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

type Policy interface {
	OnBackPressure(sess core.SessionService, member domain.ConnID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(sess core.SessionService, member domain.ConnID) BackpressureAction {
	return KickMember
}
