package services

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gleanly/glean/internal/core/domain"
)

// generalTopic names the residual cluster of a subject's unlinked
// fragments.
const generalTopic = "General"

// titleCaser renders topic keywords for group names.
var titleCaser = cases.Title(language.English)

// Grouper partitions classified fragments into named subject groups:
// connected components over the link graph restricted to the
// subject, plus one residual cluster per subject for unlinked
// fragments. It is a pure function of its inputs.
type Grouper struct{}

// NewGrouper creates a grouper.
func NewGrouper() *Grouper {
	return &Grouper{}
}

// Group clusters fragments using the given link set. Every link must
// reference two present fragments of the correct kinds; a violation
// fails the whole batch. Empty clusters are never emitted, and
// unclassified fragments never join a group.
func (g *Grouper) Group(fragments []domain.ClassifiedFragment, links []domain.Link) ([]domain.Group, error) {
	byID := make(map[string]domain.ClassifiedFragment, len(fragments))
	for _, fragment := range fragments {
		if fragment.Kind.Linkable() {
			byID[fragment.ID] = fragment
		}
	}

	for _, link := range links {
		if err := link.Validate(byID); err != nil {
			return nil, err
		}
	}

	components := connectedComponents(byID, links)

	groups := make([]domain.Group, 0, len(components))
	for _, member := range components {
		group := buildGroup(member, links)
		if group.Size() == 0 {
			continue
		}
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

// component is one cluster-in-progress.
type component struct {
	subject string
	topic   string
	members []domain.ClassifiedFragment
}

// connectedComponents partitions fragments by subject, then splits
// each subject into link-graph components plus a residual cluster of
// unlinked fragments.
func connectedComponents(byID map[string]domain.ClassifiedFragment, links []domain.Link) []component {
	parent := make(map[string]string, len(byID))
	for id := range byID {
		parent[id] = id
	}

	var find func(id string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		rootA, rootB := find(a), find(b)
		if rootA != rootB {
			// Deterministic root choice keeps output stable.
			if rootA < rootB {
				parent[rootB] = rootA
			} else {
				parent[rootA] = rootB
			}
		}
	}

	linked := make(map[string]struct{})
	for _, link := range links {
		union(link.NoteID, link.QuestionID)
		linked[link.NoteID] = struct{}{}
		linked[link.QuestionID] = struct{}{}
	}

	// Linked fragments cluster by component root; unlinked ones fall
	// into their subject's residual cluster.
	clusters := make(map[string][]domain.ClassifiedFragment)
	for id, fragment := range byID {
		var key string
		if _, ok := linked[id]; ok {
			key = fragment.Subject + "\x00" + find(id)
		} else {
			key = fragment.Subject + "\x00"
		}
		clusters[key] = append(clusters[key], fragment)
	}

	keys := make([]string, 0, len(clusters))
	for key := range clusters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	components := make([]component, 0, len(keys))
	for _, key := range keys {
		members := clusters[key]
		sortFragments(members)
		subject := strings.SplitN(key, "\x00", 2)[0]
		topic := generalTopic
		if !strings.HasSuffix(key, "\x00") {
			topic = dominantTopic(members)
		}
		components = append(components, component{subject: subject, topic: topic, members: members})
	}
	return components
}

// buildGroup assembles one group from a component's members and the
// links internal to it.
func buildGroup(c component, links []domain.Link) domain.Group {
	memberIDs := make(map[string]struct{}, len(c.members))
	for _, member := range c.members {
		memberIDs[member.ID] = struct{}{}
	}

	group := domain.Group{
		Name:    fmt.Sprintf("%s - %s", c.subject, c.topic),
		Subject: c.subject,
		Topic:   c.topic,
	}
	for _, member := range c.members {
		switch member.Kind {
		case domain.KindNote:
			group.Notes = append(group.Notes, member)
		case domain.KindWrongQuestion:
			group.Questions = append(group.Questions, member)
		}
	}
	for _, link := range links {
		_, hasNote := memberIDs[link.NoteID]
		_, hasQuestion := memberIDs[link.QuestionID]
		if hasNote && hasQuestion {
			group.Links = append(group.Links, link)
		}
	}

	group.Summary = summarise(group)
	return group
}

// dominantTopic picks the most frequent keyword across the cluster's
// texts and content types, ties broken alphabetically.
func dominantTopic(members []domain.ClassifiedFragment) string {
	freq := make(map[string]int)
	for _, member := range members {
		for _, tok := range tokenize(member.Text) {
			freq[tok]++
		}
		for _, tok := range tokenize(member.ContentType) {
			freq[tok]++
		}
		for _, concept := range member.KeyConcepts {
			for _, tok := range tokenize(concept) {
				freq[tok] += 2 // cited concepts outweigh body text
			}
		}
	}
	if len(freq) == 0 {
		return generalTopic
	}

	best := ""
	for tok, count := range freq {
		if best == "" || count > freq[best] || (count == freq[best] && tok < best) {
			best = tok
		}
	}
	return titleCaser.String(best)
}

// summarise renders a short deterministic description of a group's
// content and relationships.
func summarise(g domain.Group) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s material on %s: %s and %s",
		g.Subject, strings.ToLower(g.Topic),
		plural(len(g.Notes), "note"), plural(len(g.Questions), "wrong question"))
	if len(g.Links) > 0 {
		fmt.Fprintf(&b, ", connected by %s explaining the mistakes made", plural(len(g.Links), "relationship"))
	}
	b.WriteString(".")
	return b.String()
}

// plural renders a count with its unit.
func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// sortFragments orders members by capture time, then id.
func sortFragments(fragments []domain.ClassifiedFragment) {
	sort.Slice(fragments, func(i, j int) bool {
		if !fragments[i].Source.CapturedAt.Equal(fragments[j].Source.CapturedAt) {
			return fragments[i].Source.CapturedAt.Before(fragments[j].Source.CapturedAt)
		}
		return fragments[i].ID < fragments[j].ID
	})
}
