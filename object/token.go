package object

// Token proves that the execution lock of one Runtime is held. Its fields
// are unexported, so the only way to obtain a Token is Guard.Token. The zero
// Token and Tokens of released Guards are rejected by every operation.
type Token struct {
	g *Guard
}

// Guard is one hold of a Runtime's execution lock.
type Guard struct {
	rt       *Runtime
	released bool
}

// Token returns the proof that this Guard holds the lock.
func (g *Guard) Token() Token {
	return Token{g: g}
}

// Release drops the lock. Tokens obtained from g stop working. Releasing
// twice is a no-op.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.rt.vm.Unlock()
}

// Runtime returns the runtime the token belongs to.
func (tok Token) Runtime() *Runtime {
	tok.check(nil)
	return tok.g.rt
}

// Valid reports whether the token is usable.
func (tok Token) Valid() bool {
	return tok.g != nil && !tok.g.released
}

// check panics unless the token is live and, when rt is non-nil, belongs
// to rt.
func (tok Token) check(rt *Runtime) {
	switch {
	case tok.g == nil:
		panic("object: zero Token")
	case tok.g.released:
		panic("object: Token used after its Guard was released")
	case rt != nil && tok.g.rt != rt:
		panic("object: Token belongs to a different Runtime")
	}
}
