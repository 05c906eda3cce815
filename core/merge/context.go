// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package merge

import (
	"github.com/rs/zerolog"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/scanner"
)

type op uint8

const (
	opAdd op = iota
	opCarry
	opFuzzy
	opRetire
)

// planned is one entry of the merged context before it is handed to the builder.
type planned struct {
	op         op
	entry      catalog.Entry
	prev       *catalog.Entry
	reshaped   bool
	downgraded bool
}

// contextMerge merges a single context. Jobs for distinct contexts share no
// mutable state.
type contextMerge struct {
	name   string
	prev   *catalog.Context
	fresh  []scanner.Message
	out    *catalog.ContextBuilder
	slots  int
	fuzzy  bool
	logger zerolog.Logger

	stats       Stats
	changes     []Change
	ambiguities []Ambiguity
}

func (cm *contextMerge) run() error {
	var prevEntries []catalog.Entry
	if cm.prev != nil {
		prevEntries = cm.prev.Entries()
	}

	index := make(map[catalog.Key]int, len(prevEntries))
	for i := range prevEntries {
		index[prevEntries[i].Key()] = i
	}

	// placed holds the outcome for each previous entry, in its position.
	placed := make([]*planned, len(prevEntries))

	var (
		unmatched []int
		appended  []planned
	)

	for fi := range cm.fresh {
		m := &cm.fresh[fi]

		pi, ok := index[catalog.Key{Source: m.Source, Disambiguation: m.Disambiguation}]
		if !ok {
			unmatched = append(unmatched, fi)

			continue
		}

		p := &prevEntries[pi]
		e := p.Clone()
		e.Locations = m.Locations
		e.ExtraComment = m.ExtraComment

		reshaped, downgraded := reshape(&e, m.Plural, cm.slots)
		placed[pi] = &planned{op: opCarry, entry: e, prev: p, reshaped: reshaped, downgraded: downgraded}
	}

	for _, fi := range unmatched {
		m := &cm.fresh[fi]

		if cm.fuzzy {
			if pi, ok := cm.claim(m, prevEntries, placed); ok {
				p := &prevEntries[pi]
				e := p.Clone()
				e.Source = m.Source
				e.Locations = m.Locations
				e.ExtraComment = m.ExtraComment

				reshaped, _ := reshape(&e, m.Plural, cm.slots)
				placed[pi] = &planned{op: opFuzzy, entry: e, prev: p, reshaped: reshaped}

				continue
			}
		}

		slots := 1
		if m.Plural {
			slots = cm.slots
		}

		appended = append(appended, planned{op: opAdd, entry: catalog.Entry{
			Source:         m.Source,
			Disambiguation: m.Disambiguation,
			ExtraComment:   m.ExtraComment,
			Plural:         m.Plural,
			Locations:      m.Locations,
			Translations:   catalog.EmptySlots(slots),
		}})
	}

	for pi := range placed {
		if placed[pi] == nil {
			placed[pi] = &planned{op: opRetire, entry: prevEntries[pi], prev: &prevEntries[pi]}
		}
	}

	for _, p := range placed {
		if err := cm.apply(p); err != nil {
			return err
		}
	}

	for i := range appended {
		if err := cm.apply(&appended[i]); err != nil {
			return err
		}
	}

	return nil
}

// claim finds the first unconsumed previous entry with m's disambiguation and
// a different source. Additional candidates are recorded as an ambiguity.
// Plurality may differ; the caller reshapes the claimed slots.
func (cm *contextMerge) claim(m *scanner.Message, prevEntries []catalog.Entry, placed []*planned) (int, bool) {
	var candidates []int

	for pi := range prevEntries {
		p := &prevEntries[pi]
		if placed[pi] != nil ||
			p.Disambiguation != m.Disambiguation ||
			p.Source == m.Source {
			continue
		}

		candidates = append(candidates, pi)
	}

	if len(candidates) == 0 {
		return 0, false
	}

	if len(candidates) > 1 {
		amb := Ambiguity{
			Context:        cm.name,
			Source:         m.Source,
			Disambiguation: m.Disambiguation,
			Chosen:         prevEntries[candidates[0]].Source,
		}
		for _, pi := range candidates {
			amb.Candidates = append(amb.Candidates, prevEntries[pi].Source)
		}

		cm.ambiguities = append(cm.ambiguities, amb)
		cm.stats.Ambiguous++

		cm.logger.Info().
			Str("context", cm.name).
			Str("source", m.Source).
			Strs("candidates", amb.Candidates).
			Str("chosen", amb.Chosen).
			Msg("Ambiguous fuzzy match")
	}

	return candidates[0], true
}

func (cm *contextMerge) apply(p *planned) error {
	var err error

	switch p.op {
	case opAdd:
		err = cm.out.Add(p.entry)
	case opCarry:
		err = cm.out.CarryForward(p.entry)
	case opFuzzy:
		err = cm.out.Fuzzy(p.entry, p.prev.Source)
	case opRetire:
		err = cm.out.Retire(p.entry)
	}

	if err != nil {
		return err
	}

	cm.record(p)

	return nil
}

// record updates stats and changes from the entry just inserted.
func (cm *contextMerge) record(p *planned) {
	if p.reshaped {
		cm.stats.Reshaped++
	}

	if p.op == opAdd {
		cm.stats.New++
		cm.change(Added, &p.entry, catalog.Unfinished, catalog.Unfinished, "")

		return
	}

	got, _ := cm.out.Lookup(p.entry.Key())
	from := p.prev.Status

	switch p.op {
	case opCarry:
		switch {
		case from.IsRetired():
			cm.stats.Reinstated++
			cm.change(Reinstated, got, from, got.Status, "")
		case p.downgraded:
			cm.stats.Downgraded++
			cm.change(Downgraded, got, from, got.Status, "")
		default:
			cm.stats.Carried++
		}
	case opFuzzy:
		cm.stats.Fuzzy++
		cm.change(Matched, got, from, got.Status, got.PreviousSource)
	case opRetire:
		if from.IsRetired() {
			return
		}

		if got.Status == catalog.Vanished {
			cm.stats.Vanished++
		} else {
			cm.stats.Obsoleted++
		}

		cm.change(Retired, got, from, got.Status, "")
	}
}

func (cm *contextMerge) change(kind ChangeKind, e *catalog.Entry, from, to catalog.Status, previous string) {
	cm.changes = append(cm.changes, Change{
		Kind:           kind,
		Context:        cm.name,
		Source:         e.Source,
		Disambiguation: e.Disambiguation,
		PreviousSource: previous,
		From:           from,
		To:             to,
	})
}

// reshape fits e's translation slots to the plural flag of the fresh message.
// Missing plural slots are padded and extra ones are kept. A Finished entry
// whose slot count did not match is downgraded to Unfinished.
func reshape(e *catalog.Entry, isPlural bool, slots int) (reshaped, downgraded bool) {
	if !isPlural {
		if !e.Plural && len(e.Translations) == 1 {
			return false, false
		}

		e.Plural = false
		e.Translations = []string{e.Translation()}

		if e.Translations[0] == "" && (e.Status == catalog.Finished || e.Status == catalog.Vanished) {
			e.Status = catalog.Unfinished
			downgraded = true
		}

		return true, downgraded
	}

	flipped := !e.Plural
	e.Plural = true

	n := len(e.Translations)
	if n == slots && !flipped {
		return false, false
	}

	if n < slots {
		e.Translations = append(e.Translations, make([]string, slots-n)...)
	}

	if n != slots && (e.Status == catalog.Finished || e.Status == catalog.Vanished) {
		e.Status = catalog.Unfinished
		downgraded = true
	}

	return true, downgraded
}
