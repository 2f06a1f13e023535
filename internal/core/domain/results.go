package domain

// Status is the outcome of one platform publish attempt.
type Status string

const (
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusPending Status = "pending"
)

// PublishResult is the immutable outcome for one platform.
type PublishResult struct {
	Status    Status   `json:"status"`
	Caption   string   `json:"caption,omitempty"`
	Media     []string `json:"media,omitempty"`
	PostID    string   `json:"postId,omitempty"`
	Permalink string   `json:"permalink,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Failed builds a failed result carrying msg.
func Failed(msg string) PublishResult {
	return PublishResult{Status: StatusFailed, Error: msg}
}

// Skipped builds a dry-run result carrying the caption that would be posted.
func Skipped(caption string) PublishResult {
	return PublishResult{Status: StatusSkipped, Caption: caption}
}

// Posted builds a successful result. media may be empty.
func Posted(caption, media, postID, permalink string) PublishResult {
	r := PublishResult{
		Status:    StatusPosted,
		Caption:   caption,
		PostID:    postID,
		Permalink: permalink,
	}
	if media != "" {
		r.Media = []string{media}
	}
	return r
}

// ResultSet has exactly one result per platform. Field order is the
// serialized key order.
type ResultSet struct {
	Twitter   PublishResult `json:"twitter"`
	LinkedIn  PublishResult `json:"linkedin"`
	Facebook  PublishResult `json:"facebook"`
	Pinterest PublishResult `json:"pinterest"`
	Tumblr    PublishResult `json:"tumblr"`
}

// NewResultSet returns a set with every platform marked pending.
func NewResultSet() ResultSet {
	var rs ResultSet
	for _, p := range Platforms {
		rs.Set(p, PublishResult{Status: StatusPending})
	}
	return rs
}

// Get returns the result stored for p.
func (rs *ResultSet) Get(p Platform) PublishResult {
	if slot := rs.slot(p); slot != nil {
		return *slot
	}
	return PublishResult{}
}

// Set stores r for p. Unknown platforms are ignored.
func (rs *ResultSet) Set(p Platform, r PublishResult) {
	if slot := rs.slot(p); slot != nil {
		*slot = r
	}
}

func (rs *ResultSet) slot(p Platform) *PublishResult {
	switch p {
	case Twitter:
		return &rs.Twitter
	case LinkedIn:
		return &rs.LinkedIn
	case Facebook:
		return &rs.Facebook
	case Pinterest:
		return &rs.Pinterest
	case Tumblr:
		return &rs.Tumblr
	default:
		return nil
	}
}

// CallbackPayload is posted back to the originating system once per job.
type CallbackPayload struct {
	PostID  int64     `json:"postId"`
	Results ResultSet `json:"results"`
}

// JobResponse is the body returned to the webhook caller.
type JobResponse struct {
	Status  string    `json:"status"`
	Results ResultSet `json:"results"`
}
