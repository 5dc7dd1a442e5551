package store

import (
	"time"

	"scholar-console/internal/notify"
)

// maxNotifications bounds the toast queue; the oldest entries are dropped.
const maxNotifications = 50

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Modal struct {
	IsOpen bool   `json:"isOpen"`
	Type   string `json:"type,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Notification struct {
	ID        string       `json:"id"`
	Level     notify.Level `json:"level"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"createdAt"`
}

type UIState struct {
	SidebarOpen   bool           `json:"sidebarOpen"`
	Theme         Theme          `json:"theme"`
	Modal         Modal          `json:"modal"`
	GlobalLoading bool           `json:"globalLoading"`
	Notifications []Notification `json:"notifications"`
}

func defaultUIState() UIState {
	return UIState{SidebarOpen: true, Theme: ThemeLight}
}

type (
	ToggleSidebar  struct{}
	SetSidebarOpen struct{ Open bool }
	ToggleTheme    struct{}
	SetTheme       struct{ Theme Theme }
	OpenModal      struct {
		Type string
		Data any
	}
	CloseModal          struct{}
	SetGlobalLoading    struct{ Loading bool }
	PushNotification    struct{ Notification Notification }
	DismissNotification struct{ ID string }
)

func (ToggleSidebar) slice() Slice       { return SliceUI }
func (SetSidebarOpen) slice() Slice      { return SliceUI }
func (ToggleTheme) slice() Slice         { return SliceUI }
func (SetTheme) slice() Slice            { return SliceUI }
func (OpenModal) slice() Slice           { return SliceUI }
func (CloseModal) slice() Slice          { return SliceUI }
func (SetGlobalLoading) slice() Slice    { return SliceUI }
func (PushNotification) slice() Slice    { return SliceUI }
func (DismissNotification) slice() Slice { return SliceUI }

func reduceUI(st UIState, a Action) UIState {
	switch a := a.(type) {
	case ToggleSidebar:
		st.SidebarOpen = !st.SidebarOpen
	case SetSidebarOpen:
		st.SidebarOpen = a.Open
	case ToggleTheme:
		if st.Theme == ThemeDark {
			st.Theme = ThemeLight
		} else {
			st.Theme = ThemeDark
		}
	case SetTheme:
		if a.Theme == ThemeDark || a.Theme == ThemeLight {
			st.Theme = a.Theme
		}
	case OpenModal:
		st.Modal = Modal{IsOpen: true, Type: a.Type, Data: a.Data}
	case CloseModal:
		st.Modal = Modal{}
	case SetGlobalLoading:
		st.GlobalLoading = a.Loading
	case PushNotification:
		list := append(append([]Notification(nil), st.Notifications...), a.Notification)
		if len(list) > maxNotifications {
			list = list[len(list)-maxNotifications:]
		}
		st.Notifications = list
	case DismissNotification:
		st.Notifications = removeWhere(st.Notifications, func(n Notification) bool { return n.ID == a.ID })
	}
	return st
}
