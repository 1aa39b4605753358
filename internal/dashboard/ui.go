package dashboard

import (
	"errors"
	"fmt"
)

type Tab string

const (
	TabDashboard  Tab = "dashboard"
	TabExpenses   Tab = "expenses"
	TabCategories Tab = "categories"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabDashboard, TabExpenses, TabCategories}

type Modal string

const (
	ModalCategory Modal = "category"
	ModalEdit     Modal = "edit"
)

var (
	ErrUnknownTab   = errors.New("unknown tab")
	ErrUnknownModal = errors.New("unknown modal")
)

// ParseTab maps a tab name to a Tab.
func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// ParseModal maps a modal name to a Modal.
func ParseModal(s string) (Modal, error) {
	switch Modal(s) {
	case ModalCategory, ModalEdit:
		return Modal(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModal, s)
}

// UI is the modal and tab state. Exactly one tab is active; the two modals
// open and close independently. EditID is set only while the edit modal is
// open.
type UI struct {
	Tab          Tab
	CategoryOpen bool
	EditOpen     bool
	EditID       int64
}

func newUI() UI {
	return UI{Tab: TabDashboard}
}

// IsOpen reports whether m is open.
func (u UI) IsOpen(m Modal) bool {
	switch m {
	case ModalCategory:
		return u.CategoryOpen
	case ModalEdit:
		return u.EditOpen
	}
	return false
}
