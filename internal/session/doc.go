// Package session manages the connection between a host application and a
// user-selected wallet provider.
//
// # Flow
//
//	Manager.SelectProvider("eternl")
//	  → Negotiator.Negotiate: lookup → Enable → GetNetworkID → settle → RewardAddressFetcher.Fetch
//	  → Outcome{Connected | Failed}
//	  → Manager applies the transition and notifies the host
//
// # State Machine
//
//	DISCONNECTED ⇄ LIST_OPEN → CONNECTING → CONNECTED → DISCONNECTED
//	                           CONNECTING → LIST_OPEN | DISCONNECTED (failure, with LastError)
//
// Only one negotiation may be in flight; SelectProvider and BeginExternal return
// ErrConnecting while the session is CONNECTING.
//
// # Errors
//
// Raw provider errors are classified into not_installed, wrong_network and
// generic by Classifier. Every user-facing message passes through ErrorThrottle
// before reaching Callbacks.ShowError, so the negotiator and an external widget
// reporting the same failure for one click produce a single notification.
//
// # Package Structure
//
//   - state.go      - transition table and history
//   - manager.go    - session owner, commands and callbacks
//   - negotiator.go - enable/network/address protocol
//   - reward.go     - "account changed" retry state machine
//   - classify.go   - error categories and user-facing text
//   - throttle.go   - duplicate error gate
package session
