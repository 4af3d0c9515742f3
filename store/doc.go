// Package store persists training history in a SQLite database.
//
// A [Store] is both a repository and an observer: registered with a
// session it saves every completed trial, and [Store.LoadHistory] returns
// the records needed to seed a profile, timeline and trend analyzer at
// startup.
//
//	st, err := store.Open("ear.db", store.Config{})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	h, err := st.LoadHistory(ctx)
//	profile.Replay(h.Comparisons, h.PitchMatchings)
package store
