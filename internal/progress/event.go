package progress

import (
	"errors"
	"fmt"
)

// Kind identifies which variant an Event carries.
type Kind string

// Supported event kinds.
const (
	KindStatus    Kind = "status"
	KindProgress  Kind = "progress"
	KindLifecycle Kind = "lifecycle"
)

// LifecycleKind denotes a milestone reported through a lifecycle event.
type LifecycleKind string

// Supported lifecycle kinds.
const (
	LifecycleInstalling LifecycleKind = "installing"
	LifecycleUpdating   LifecycleKind = "updating"
)

// Lifecycle is the payload of a KindLifecycle event.
type Lifecycle struct {
	Kind LifecycleKind
	// Detail is only meaningful for LifecycleUpdating.
	Detail string
}

// Event is one reported unit of progress or status information. Only the
// fields belonging to Kind are meaningful; the rest stay zero. Events hold no
// references, so copying one is a full clone.
type Event struct {
	Kind Kind
	// Text is the status line of a KindStatus event.
	Text string
	// Current and Max describe a KindProgress event. Current <= Max is a
	// producer convention and is not enforced here.
	Current uint64
	Max     uint64
	// Lifecycle is the payload of a KindLifecycle event.
	Lifecycle Lifecycle
}

// Status returns a status event carrying text.
func Status(text string) Event {
	return Event{Kind: KindStatus, Text: text}
}

// Progress returns a progress event at current out of total.
func Progress(current, total uint64) Event {
	return Event{Kind: KindProgress, Current: current, Max: total}
}

// Installing returns a lifecycle event for the installing milestone.
func Installing() Event {
	return Event{Kind: KindLifecycle, Lifecycle: Lifecycle{Kind: LifecycleInstalling}}
}

// Updating returns a lifecycle event for an update described by detail.
func Updating(detail string) Event {
	return Event{Kind: KindLifecycle, Lifecycle: Lifecycle{Kind: LifecycleUpdating, Detail: detail}}
}

// Validate reports events whose discriminants are outside the closed sets.
func (e Event) Validate() error {
	switch e.Kind {
	case KindStatus, KindProgress:
	case KindLifecycle:
		switch e.Lifecycle.Kind {
		case LifecycleInstalling, LifecycleUpdating:
		case "":
			return errors.New("lifecycle event requires a lifecycle kind")
		default:
			return fmt.Errorf("unknown lifecycle kind %q", e.Lifecycle.Kind)
		}
	case "":
		return errors.New("event kind is required")
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// String renders a short human-readable form used in logs.
func (e Event) String() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("status(%s)", e.Text)
	case KindProgress:
		return fmt.Sprintf("progress(%d/%d)", e.Current, e.Max)
	case KindLifecycle:
		if e.Lifecycle.Detail != "" {
			return fmt.Sprintf("lifecycle(%s: %s)", e.Lifecycle.Kind, e.Lifecycle.Detail)
		}
		return fmt.Sprintf("lifecycle(%s)", e.Lifecycle.Kind)
	default:
		return fmt.Sprintf("unknown(%s)", e.Kind)
	}
}
