package host

import "time"

// Demo returns a Memory store filled with a small three-level bookmark tree
// and a week of history, for `lesezeichen serve --demo`.
func Demo(now time.Time) *Memory {
	m := NewMemory()

	bar := m.AddFolder(RootID, "Bookmarks bar")
	m.AddBookmark(bar, "Firefox Add-ons", "https://addons.mozilla.org")

	dev := m.AddFolder(bar, "Developer Tools")
	m.AddBookmark(dev, "GitHub", "https://github.com")
	m.AddBookmark(dev, "VS Code", "https://code.visualstudio.com")
	frontend := m.AddFolder(dev, "Frontend")
	m.AddBookmark(frontend, "React", "https://react.dev")
	m.AddBookmark(frontend, "Vue.js", "https://vuejs.org")
	css := m.AddFolder(frontend, "CSS Frameworks")
	m.AddBookmark(css, "Tailwind CSS", "https://tailwindcss.com")
	m.AddBookmark(css, "Bootstrap", "https://getbootstrap.com")
	backend := m.AddFolder(dev, "Backend")
	m.AddBookmark(backend, "Go", "https://go.dev")
	m.AddBookmark(backend, "Node.js", "https://nodejs.org")

	news := m.AddFolder(bar, "News & Media")
	m.AddBookmark(news, "Hacker News", "https://news.ycombinator.com")
	m.AddBookmark(news, "LWN.net", "https://lwn.net")
	tech := m.AddFolder(news, "Tech")
	m.AddBookmark(tech, "TechCrunch", "https://techcrunch.com")
	ai := m.AddFolder(tech, "AI & Machine Learning")
	m.AddBookmark(ai, "Hugging Face", "https://huggingface.co")
	m.AddBookmark(ai, "Papers with Code", "https://paperswithcode.com")

	other := m.AddFolder(RootID, "Other bookmarks")
	fun := m.AddFolder(other, "Entertainment")
	m.AddBookmark(fun, "YouTube", "https://youtube.com")
	m.AddBookmark(fun, "Netflix", "https://netflix.com")
	m.AddFolder(other, "Empty")

	mobile := m.AddFolder(RootID, "Mobile bookmarks")
	m.AddBookmark(mobile, "Weather", "https://weather.com")

	ms := now.UnixMilli()
	hour := time.Hour.Milliseconds()
	m.AddHistory(
		HistoryEntry{ID: "h1", URL: "https://go.dev/doc/effective_go", Title: "Effective Go", LastVisitTime: ms - hour, VisitCount: 12, TypedCount: 2},
		HistoryEntry{ID: "h2", URL: "https://github.com/trending", Title: "Trending repositories", LastVisitTime: ms - 3*hour, VisitCount: 4},
		HistoryEntry{URL: "https://news.ycombinator.com/", LastVisitTime: ms - 26*hour, VisitCount: 30, TypedCount: 9},
		HistoryEntry{ID: "h4", URL: "https://lwn.net/Articles/", Title: "LWN.net articles", LastVisitTime: ms - 80*hour, VisitCount: 3},
		HistoryEntry{ID: "h5", URL: "https://example.com/old", Title: "Too old to show", LastVisitTime: ms - 10*24*hour, VisitCount: 1},
	)
	return m
}
