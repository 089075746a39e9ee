package visualization

import (
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// resolveBorderColor returns the color of the first source (classifier
// order) that covers the whole category, or the category default.
func resolveBorderColor(cls *traffic.Classification, c traffic.Category, sources []*SourceNode) string {
	for _, s := range sources {
		if cls.Covers(s.IP, c) {
			return s.Color
		}
	}
	return c.DefaultColor()
}

// resolveLinks emits, per (source, category) pair, either one CategoryLink
// when the source covers the category or one TargetLink per retained
// target. It also returns how many source-target pairs had no retained
// target to attach to, per category.
func resolveLinks(cls *traffic.Classification, sources []*SourceNode, blocks map[traffic.Category]*CategoryBlock) ([]Link, map[traffic.Category]int) {
	links := make([]Link, 0)
	dropped := make(map[traffic.Category]int)

	for _, src := range sources {
		for _, c := range traffic.Categories {
			observed := cls.Targets(src.IP, c)
			if len(observed) == 0 {
				continue
			}
			block := blocks[c]

			if cls.Covers(src.IP, c) {
				links = append(links, Link{
					Kind:   CategoryLink,
					Source: src,
					Target: block,
					Color:  src.Color,
				})
				continue
			}

			retained := make(map[string]*TargetNode, len(block.Targets))
			for _, t := range block.Targets {
				retained[t.Target] = t
			}
			for _, target := range observed {
				node, ok := retained[target]
				if !ok {
					dropped[c]++
					continue
				}
				links = append(links, Link{
					Kind:   TargetLink,
					Source: src,
					Target: node,
					Color:  src.Color,
				})
			}
		}
	}
	return links, dropped
}
