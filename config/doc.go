/*
Package config loads connection settings for docmodel.

Settings come from a YAML file naming one entry per alias:

	connections:
	  default:
	    uri: mongodb://localhost:27017/app
	    timeout: 10s
	  archive:
	    driver: dynamodb
	    region: us-west-2
	    table: archive
	    endpoint: http://localhost:8000

Environment variables, optionally read from a .env file, fill in or override
the entry for DOCMODEL_ALIAS (default "default"):

	DOCMODEL_URI, DOCMODEL_DATABASE, DOCMODEL_DDB_TABLE,
	AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
*/
package config
