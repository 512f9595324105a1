package chat

import "github.com/prometheus/client_golang/prometheus"

// Reply kinds recorded by Chat.
const (
	replyOK       = "reply"
	replyError    = "error"
	replyEmpty    = "no_response"
	replyRejected = "rejected"
)

var repliesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ollamaproxy",
		Subsystem: "chat",
		Name:      "replies_total",
		Help:      "Chat replies by kind (reply, error, no_response, rejected)",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(repliesTotal)
}

func countReply(kind string) { repliesTotal.WithLabelValues(kind).Inc() }
