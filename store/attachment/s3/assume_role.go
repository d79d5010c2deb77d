package s3

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// assumeRole wraps base credentials with an STS AssumeRole provider.
// Credentials are cached and refreshed before they expire.
func assumeRole(base aws.Config, o *options) aws.CredentialsProvider {
	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(base), o.roleARN, func(ar *stscreds.AssumeRoleOptions) {
		ar.RoleSessionName = o.roleSessionName
		if o.externalID != "" {
			ar.ExternalID = aws.String(o.externalID)
		}
	})
	return aws.NewCredentialsCache(provider)
}
