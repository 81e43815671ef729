package service

import "sync"

// sessionLocks serializa turnos concurrentes sobre la misma sesión. Sin esto,
// dos turnos simultáneos harían last-write-wins sobre la lista de mensajes y
// uno de los dos se perdería en silencio.
//
// Cada entrada lleva un refcount: la última liberación sin esperas borra la
// entrada del mapa, así el mapa no crece con cada sesión tocada alguna vez.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// acquire bloquea el mutex de la sesión y devuelve su unlock.
func (l *sessionLocks) acquire(userID, sessionID string) func() {
	key := userID + ":" + sessionID

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &sessionLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
