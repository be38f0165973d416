// Package iamrole obtains the execution role Bedrock flows run under.
package iamrole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
)

// BedrockServicePrincipal is the principal trusted to assume the role.
const BedrockServicePrincipal = "bedrock.amazonaws.com"

// IAMAPI is the subset of the IAM client used here.
type IAMAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput,
		optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
}

// STSAPI is the subset of the STS client used here.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Provisioner creates or reuses the flow execution role.
type Provisioner struct {
	iam       IAMAPI
	sts       STSAPI
	policyARN string
}

// New creates a Provisioner that attaches policyARN to roles it creates.
func New(iamClient IAMAPI, stsClient STSAPI, policyARN string) *Provisioner {
	return &Provisioner{iam: iamClient, sts: stsClient, policyARN: policyARN}
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal"`
	Action    string            `json:"Action"`
}

// TrustPolicy returns the assume-role policy letting Bedrock assume the role.
func TrustPolicy() string {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string]string{"Service": BedrockServicePrincipal},
			Action:    "sts:AssumeRole",
		}},
	}
	data, _ := json.Marshal(doc) // a fixed struct of strings always marshals
	return string(data)
}

// EnsureRole creates roleName with the Bedrock trust policy and attaches the
// configured policy. If the role already exists its ARN is derived from the
// caller's account and partition and returned as is: the existing role's
// trust and permissions are not checked or changed.
func (p *Provisioner) EnsureRole(ctx context.Context, roleName string) (string, error) {
	created, err := p.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(TrustPolicy()),
		Description:              aws.String("Execution role for Amazon Bedrock Prompt Flows"),
	})
	if err != nil {
		var exists *iamtypes.EntityAlreadyExistsException
		if !errors.As(err, &exists) {
			return "", pkgerrors.FromAWS(pkgerrors.ComponentRole, "CreateRole", err)
		}
		arn, err := p.existingRoleARN(ctx, roleName)
		if err != nil {
			return "", err
		}
		logger.Step(ctx, fmt.Sprintf("Using existing IAM role: %s", arn), "role_arn", arn)
		return arn, nil
	}

	if _, err := p.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(p.policyARN),
	}); err != nil {
		return "", pkgerrors.FromAWS(pkgerrors.ComponentRole, "AttachRolePolicy", err)
	}

	arn := aws.ToString(created.Role.Arn)
	logger.Step(ctx, fmt.Sprintf("Created new IAM role: %s", arn), "role_arn", arn)
	return arn, nil
}

func (p *Provisioner) existingRoleARN(ctx context.Context, roleName string) (string, error) {
	id, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", pkgerrors.FromAWS(pkgerrors.ComponentRole, "GetCallerIdentity", err)
	}
	account := aws.ToString(id.Account)
	if account == "" {
		return "", pkgerrors.New(pkgerrors.ComponentRole, "GetCallerIdentity", fmt.Errorf("caller identity has no account"))
	}
	return RoleARN(partitionOf(aws.ToString(id.Arn)), account, roleName), nil
}

// RoleARN formats an IAM role ARN.
func RoleARN(partition, account, roleName string) string {
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", partition, account, roleName)
}

// partitionOf returns the partition of arn, defaulting to "aws".
func partitionOf(arn string) string {
	parts := strings.SplitN(arn, ":", 3)
	if len(parts) == 3 && parts[0] == "arn" && parts[1] != "" {
		return parts[1]
	}
	return "aws"
}
