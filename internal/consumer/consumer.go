package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/KCuppens/bugwatch/internal/alert"
	"github.com/KCuppens/bugwatch/internal/config"
	"github.com/nsqio/go-nsq"
)

// NSQConsumer drains the alert-trigger topic and runs rule evaluation for
// each message.
type NSQConsumer struct {
	consumer *nsq.Consumer
}

func NewAlertTriggerConsumer(ctx context.Context, cfg config.Config, evaluator *alert.Evaluator) (*NSQConsumer, error) {
	channel := cfg.NSQAlertChannel
	if channel == "" {
		channel = "alert-dispatcher"
	}

	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = 50
	nsqCfg.MsgTimeout = 30 * time.Second
	cons, err := nsq.NewConsumer(cfg.NSQAlertTopic, channel, nsqCfg)
	if err != nil {
		return nil, err
	}
	cons.SetLogger(log.New(log.Writer(), "nsq ", log.LstdFlags), nsq.LogLevelInfo)
	cons.AddHandler(handleTriggerMessage(evaluator))

	if err := connectToNSQDWithRetry(ctx, cons, cfg.NSQDAddress, cfg.NSQAlertTopic, channel); err != nil {
		cons.Stop()
		return nil, err
	}
	return &NSQConsumer{consumer: cons}, nil
}

func (c *NSQConsumer) Stop() {
	if c == nil || c.consumer == nil {
		return
	}
	c.consumer.Stop()
	<-c.consumer.StopChan
}

func handleTriggerMessage(evaluator *alert.Evaluator) nsq.HandlerFunc {
	return func(m *nsq.Message) error {
		var trig alert.Trigger
		if err := json.Unmarshal(m.Body, &trig); err != nil {
			// Malformed messages never become valid; drop instead of requeue.
			log.Printf("consumer: dropping malformed trigger: %v", err)
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := evaluator.HandleTrigger(ctx, trig); err != nil {
			log.Printf("consumer: trigger %s for project %s: %v", trig.Type, trig.ProjectID, err)
			return err
		}
		return nil
	}
}

func connectToNSQDWithRetry(ctx context.Context, cons *nsq.Consumer, addr, topic, channel string) error {
	const (
		totalWait = 2 * time.Minute
		maxDelay  = 5 * time.Second
	)
	deadline := time.Now().Add(totalWait)
	delay := 300 * time.Millisecond
	var lastErr error

	for {
		err := cons.ConnectToNSQD(addr)
		if err == nil {
			return nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			return fmt.Errorf("connect nsqd addr=%s topic=%s channel=%s: %w", addr, topic, channel, lastErr)
		}
		log.Printf("nsq connect failed (addr=%s topic=%s channel=%s): %v; retrying in %s", addr, topic, channel, lastErr, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
