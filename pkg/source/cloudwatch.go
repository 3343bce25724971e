package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// cwClient is the subset of the CloudWatch Logs API this backend needs,
// narrowed so tests can substitute a fake.
type cwClient interface {
	DescribeLogStreams(ctx context.Context, in *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	GetLogEvents(ctx context.Context, in *cloudwatchlogs.GetLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error)
}

// CloudWatch treats a log group as a LogSource whose members are its log
// streams, so that event types keyed on filename (matched against the
// stream name) work unmodified against a cloud backend.
type CloudWatch struct {
	client       cwClient
	logGroupName string
}

// NewCloudWatch builds a CloudWatch log source for logGroupName using the
// default AWS config chain, optionally scoped by region/profile.
func NewCloudWatch(ctx context.Context, logGroupName, region, profile string) (*CloudWatch, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("source: load aws config: %w", err)
	}
	return &CloudWatch{client: cloudwatchlogs.NewFromConfig(cfg), logGroupName: logGroupName}, nil
}

func (c *CloudWatch) Kind() Kind   { return KindCloudWatch }
func (c *CloudWatch) Path() string { return c.logGroupName }

func (c *CloudWatch) Members() ([]Member, error) {
	ctx := context.Background()
	var members []Member
	var token *string
	for {
		out, err := c.client.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
			LogGroupName: aws.String(c.logGroupName),
			NextToken:    token,
		})
		if err != nil {
			return nil, fmt.Errorf("source: describe log streams for %s: %w", c.logGroupName, err)
		}
		for _, s := range out.LogStreams {
			name := aws.ToString(s.LogStreamName)
			var mtime time.Time
			if s.LastEventTimestamp != nil {
				mtime = time.UnixMilli(*s.LastEventTimestamp)
			}
			members = append(members, Member{
				Path:       name,
				PseudoPath: c.logGroupName + "/" + name,
				ModTime:    mtime,
			})
		}
		if out.NextToken == nil || (token != nil && *out.NextToken == *token) {
			break
		}
		token = out.NextToken
	}
	return members, nil
}

// Open streams a log stream's events, oldest first, rendered as plain
// text lines so pkg/matcher can treat it like any other log source.
func (c *CloudWatch) Open(m Member) (io.ReadCloser, error) {
	ctx := context.Background()
	var buf bytes.Buffer
	var token *string
	for {
		out, err := c.client.GetLogEvents(ctx, &cloudwatchlogs.GetLogEventsInput{
			LogGroupName:  aws.String(c.logGroupName),
			LogStreamName: aws.String(m.Path),
			NextToken:     token,
			StartFromHead: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("source: get log events for %s/%s: %w", c.logGroupName, m.Path, err)
		}
		for _, e := range out.Events {
			buf.WriteString(cwEventLine(e))
			buf.WriteByte('\n')
		}
		if out.NextForwardToken == nil || (token != nil && *out.NextForwardToken == *token) {
			break
		}
		token = out.NextForwardToken
	}
	return io.NopCloser(&buf), nil
}

func cwEventLine(e cwtypes.OutputLogEvent) string {
	ts := time.UnixMilli(aws.ToInt64(e.Timestamp)).UTC().Format(time.RFC3339Nano)
	return ts + " " + aws.ToString(e.Message)
}
