package router

import "context"

type stackKey struct{}

// frame is one topic being delivered; frames link to the enclosing delivery.
type frame struct {
	topic  string
	parent *frame
}

// withTopic returns ctx with topic pushed on the delivery stack. Popping is
// implicit: callers outside the delivery keep the parent ctx.
func withTopic(ctx context.Context, topic string) context.Context {
	parent, _ := ctx.Value(stackKey{}).(*frame)
	return context.WithValue(ctx, stackKey{}, &frame{topic: topic, parent: parent})
}

// delivering reports whether topic is on ctx's delivery stack.
func delivering(ctx context.Context, topic string) bool {
	for f, _ := ctx.Value(stackKey{}).(*frame); f != nil; f = f.parent {
		if f.topic == topic {
			return true
		}
	}
	return false
}

// DeliveryStack returns the topics being delivered on ctx, innermost first.
func DeliveryStack(ctx context.Context) []string {
	var out []string
	for f, _ := ctx.Value(stackKey{}).(*frame); f != nil; f = f.parent {
		out = append(out, f.topic)
	}
	return out
}
