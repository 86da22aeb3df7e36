package aws

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// accountClients bundles the service clients used to list resources
// within a single account.
type accountClients struct {
	ec2         *ec2.Client
	autoscaling *autoscaling.Client
	lambda      *lambda.Client
	ecs         *ecs.Client
	eks         *eks.Client
	ecr         *ecr.Client
	rds         *rds.Client
	dynamodb    *dynamodb.Client
	redshift    *redshift.Client
	memorydb    *memorydb.Client
	elbv2       *elasticloadbalancingv2.Client
	route53     *route53.Client
	s3          *s3.Client
	iam         *iam.Client
	kms         *kms.Client
	sqs         *sqs.Client
	logs        *cloudwatchlogs.Client
	cloudtrail  *cloudtrail.Client
}

func newAccountClients(cfg aws.Config) *accountClients {
	return &accountClients{
		ec2:         ec2.NewFromConfig(cfg),
		autoscaling: autoscaling.NewFromConfig(cfg),
		lambda:      lambda.NewFromConfig(cfg),
		ecs:         ecs.NewFromConfig(cfg),
		eks:         eks.NewFromConfig(cfg),
		ecr:         ecr.NewFromConfig(cfg),
		rds:         rds.NewFromConfig(cfg),
		dynamodb:    dynamodb.NewFromConfig(cfg),
		redshift:    redshift.NewFromConfig(cfg),
		memorydb:    memorydb.NewFromConfig(cfg),
		elbv2:       elasticloadbalancingv2.NewFromConfig(cfg),
		route53:     route53.NewFromConfig(cfg),
		s3:          s3.NewFromConfig(cfg),
		iam:         iam.NewFromConfig(cfg),
		kms:         kms.NewFromConfig(cfg),
		sqs:         sqs.NewFromConfig(cfg),
		logs:        cloudwatchlogs.NewFromConfig(cfg),
		cloudtrail:  cloudtrail.NewFromConfig(cfg),
	}
}
