package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/objrt/object"
	"github.com/wippyai/objrt/vm"
)

// session keeps a runtime and handles to every type the CLI can call.
type session struct {
	rt    *object.Runtime
	log   *zap.Logger
	stats *eventStats
	types map[string]*object.Type
	order []string
}

// eventStats counts object lifecycle events. It runs under the execution
// lock, so the counters need no synchronization of their own.
type eventStats struct {
	log       *zap.Logger
	allocated int
	freed     int
	types     int
}

func (e *eventStats) OnObjectEvent(ev vm.Event) {
	switch ev.Kind {
	case vm.EventAllocated:
		e.allocated++
	case vm.EventFreed:
		e.freed++
	case vm.EventTypeCreated:
		e.types++
		e.log.Debug("type created", zap.Uint32("ptr", uint32(ev.Ptr)))
	}
}

type typeInfo struct {
	name   string
	mro    []string
	params []paramInfo
}

func openSession(ctx context.Context, cfg cliConfig, log *zap.Logger) (*session, error) {
	rt, err := object.New(ctx, cfg.VM)
	if err != nil {
		return nil, fmt.Errorf("start runtime: %w", err)
	}
	s := &session{
		rt:    rt,
		log:   log,
		stats: &eventStats{log: log},
		types: make(map[string]*object.Type),
	}

	err = rt.With(func(tok object.Token) error {
		tok.VM().Subscribe(s.stats)
		for _, t := range rt.Builtins(tok).All() {
			s.add(tok, t)
		}
		for _, d := range cfg.Types {
			if err := s.declare(tok, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) add(tok object.Token, t *object.Type) {
	name := t.Name(tok)
	if old, ok := s.types[name]; ok {
		old.Release(tok)
	} else {
		s.order = append(s.order, name)
	}
	s.types[name] = t
}

// declare creates a heap type by calling type(name, bases, {}).
func (s *session) declare(tok object.Token, d typeDecl) error {
	bases := make([]any, 0, len(d.Bases))
	for _, b := range d.Bases {
		t, ok := s.types[b]
		if !ok {
			return fmt.Errorf("declare %s: unknown base %q", d.Name, b)
		}
		bases = append(bases, t)
	}

	res, err := s.types["type"].Call(tok, object.Args{d.Name, bases, map[string]any{}}, nil)
	if err != nil {
		var fe *object.Err
		if errors.As(err, &fe) {
			fe.Release(tok)
		}
		object.ClearErr(tok)
		return fmt.Errorf("declare %s: %w", d.Name, err)
	}
	defer res.Release(tok)

	t, err := object.TypeFromPtrChecked(tok, res.Ptr())
	if err != nil {
		return fmt.Errorf("declare %s: %w", d.Name, err)
	}
	s.add(tok, t)
	s.log.Debug("declared type", zap.String("name", d.Name), zap.Strings("bases", d.Bases))
	return nil
}

func (s *session) lookup(name string) (*object.Type, error) {
	t, ok := s.types[name]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	return t, nil
}

// list describes every known type in declaration order.
func (s *session) list() ([]typeInfo, error) {
	var out []typeInfo
	err := s.rt.With(func(tok object.Token) error {
		for _, name := range s.order {
			info := typeInfo{name: name}
			for _, m := range s.types[name].MRO(tok) {
				info.mro = append(info.mro, m.Name(tok))
				m.Release(tok)
			}
			info.params = paramsFor(info.mro)
			out = append(out, info)
		}
		return nil
	})
	return out, err
}

func (s *session) check(a, b string) (bool, error) {
	ta, err := s.lookup(a)
	if err != nil {
		return false, err
	}
	tb, err := s.lookup(b)
	if err != nil {
		return false, err
	}
	var sub bool
	err = s.rt.With(func(tok object.Token) error {
		sub = ta.IsSubtypeOf(tok, tb)
		return nil
	})
	return sub, err
}

// call converts text arguments with the type's parameter descriptors and
// calls it. It returns the repr of the result.
func (s *session) call(name string, args []string, kwargs map[string]string) (string, error) {
	t, err := s.lookup(name)
	if err != nil {
		return "", err
	}

	var out string
	err = s.rt.With(func(tok object.Token) error {
		var mro []string
		for _, m := range t.MRO(tok) {
			mro = append(mro, m.Name(tok))
			m.Release(tok)
		}
		params := paramsFor(mro)

		callArgs := make(object.Args, len(args))
		for i, a := range args {
			v, err := convertArg(a, paramType(params, i))
			if err != nil {
				return fmt.Errorf("argument %d: %w", i+1, err)
			}
			callArgs[i] = v
		}

		var kw *object.Dict
		if len(kwargs) > 0 {
			m := make(map[string]any, len(kwargs))
			for k, raw := range kwargs {
				v, err := convertArg(raw, keywordType(params, k))
				if err != nil {
					return fmt.Errorf("keyword %s: %w", k, err)
				}
				m[k] = v
			}
			d, err := object.DictFrom(tok, m)
			if err != nil {
				return err
			}
			defer d.Release(tok)
			kw = d
		}

		res, err := t.Call(tok, callArgs, kw)
		if err != nil {
			var fe *object.Err
			if errors.As(err, &fe) {
				fe.Release(tok)
			}
			object.ClearErr(tok)
			return err
		}
		defer res.Release(tok)
		out = res.Repr(tok)
		return nil
	})
	return out, err
}

func (s *session) Close(ctx context.Context) {
	_ = s.rt.With(func(tok object.Token) error {
		for _, t := range s.types {
			t.Release(tok)
		}
		s.log.Debug("session closed",
			zap.Int("allocated", s.stats.allocated),
			zap.Int("freed", s.stats.freed),
			zap.Int("types_created", s.stats.types),
			zap.Int("live", s.rt.Live(tok)))
		return nil
	})
	if err := s.rt.Close(ctx); err != nil {
		s.log.Warn("close runtime", zap.Error(err))
	}
}

func parseKeywords(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("keyword %q: want name=value", kv)
		}
		out[k] = v
	}
	return out, nil
}
