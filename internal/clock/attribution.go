package clock

// AttributeSpeaker decides which side a finalized transcript belongs to.
//
// Single-side phases attribute to their side. In shared phases the side
// holding the floor wins; when nobody does, transcripts alternate by their
// sequence number: even to the affirmative, odd to the negative.
func AttributeSpeaker(p Phase, activeKey string, seq int) string {
	switch p.SpeakerMode {
	case SpeakerAffirmative:
		return SideAffirmative
	case SpeakerNegative:
		return SideNegative
	}
	if activeKey != "" {
		switch l := LayoutOf(p).(type) {
		case Dual:
			if l.has(activeKey) {
				return activeKey
			}
		case RoleBased:
			if role, ok := l.role(activeKey); ok {
				return role.Side
			}
		}
	}
	if seq%2 == 0 {
		return SideAffirmative
	}
	return SideNegative
}
