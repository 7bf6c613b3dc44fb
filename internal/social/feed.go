package social

// FeedEntry is one card in the social hub on the home page.
type FeedEntry struct {
	Platform   Platform `json:"platform"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Engagement string   `json:"engagement"`
	Time       string   `json:"time"`
	Link       string   `json:"link"`
}

type PlatformStat struct {
	Platform  Platform `json:"platform"`
	Name      string   `json:"name"`
	Followers string   `json:"followers"`
	Growth    string   `json:"growth"`
}

type Feed struct {
	Entries []FeedEntry    `json:"entries"`
	Stats   []PlatformStat `json:"stats"`
}

// DefaultFeed is placeholder hub content until real platform feeds exist.
func DefaultFeed() Feed {
	return Feed{
		Stats: []PlatformStat{
			{Facebook, "Facebook", "12.5K", "+5.2%"},
			{YouTube, "YouTube", "8.9K", "+12.1%"},
			{Telegram, "Telegram", "3.2K", "+8.7%"},
			{WhatsApp, "WhatsApp", "1.8K", "+15.3%"},
		},
		Entries: []FeedEntry{
			{
				Platform:   Facebook,
				Title:      "Latest Blog Update",
				Content:    "Just published a new article about modern web development trends. Check it out!",
				Engagement: "124 likes, 23 comments",
				Time:       "2 hours ago",
				Link:       "https://facebook.com/yourpage",
			},
			{
				Platform:   YouTube,
				Title:      "New Video Tutorial",
				Content:    "Watch our latest tutorial on building cinematic web experiences with React.",
				Engagement: "1.2K views, 89 likes",
				Time:       "1 day ago",
				Link:       "https://youtube.com/yourchannel",
			},
			{
				Platform:   Telegram,
				Title:      "Channel Update",
				Content:    "Join our community for exclusive content and behind-the-scenes updates.",
				Engagement: "2.3K members",
				Time:       "3 days ago",
				Link:       "https://t.me/yourchannel",
			},
			{
				Platform:   WhatsApp,
				Title:      "WhatsApp Status",
				Content:    "Share our latest blog posts with your contacts via WhatsApp.",
				Engagement: "456 status views",
				Time:       "5 days ago",
				Link:       "https://wa.me/yourphonenumber",
			},
		},
	}
}
